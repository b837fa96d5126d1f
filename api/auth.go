package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexora-w/TrustWork/identity"
)

// CallerHeader carries the caller's address for HeaderAuthenticator.
const CallerHeader = "X-Caller-Address"

// Authenticator identifies the caller of a request. It returns
// identity.Zero with a nil error for anonymous requests; read endpoints
// accept those and the ledger refuses anonymous transitions.
type Authenticator interface {
	Authenticate(r *http.Request) (identity.Address, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (identity.Address, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(r *http.Request) (identity.Address, error) { return f(r) }

// HeaderAuthenticator trusts the X-Caller-Address header. Deploy it only
// behind a gateway that verifies the caller's wallet signature and sets
// the header itself.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (identity.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if raw == "" {
		return identity.Zero, nil
	}
	return identity.Parse(raw)
}

// authenticate attaches the caller to the request context.
func (a *API) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := a.auth.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "invalid_caller"})
			return
		}
		if !caller.IsZero() {
			c.Request = c.Request.WithContext(identity.WithCaller(c.Request.Context(), caller))
		}
		c.Next()
	}
}
