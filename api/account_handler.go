package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexora-w/TrustWork/identity"
)

func (a *API) balance(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	bal, err := a.ledger.Balance(c.Request.Context(), addr)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Address: addr.String(), Balance: bal.String()})
}

func (a *API) summary(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	s, err := a.ledger.Summarize(c.Request.Context(), addr)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func addressParam(c *gin.Context) (identity.Address, bool) {
	addr, err := identity.Parse(c.Param("address"))
	if err != nil {
		badRequest(c, err.Error())
		return identity.Zero, false
	}
	return addr, true
}
