package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	trustwork "github.com/nexora-w/TrustWork"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{trustwork.ErrJobNotFound, http.StatusNotFound, "job_not_found"},
	{trustwork.ErrMissingCaller, http.StatusUnauthorized, "missing_caller"},
	{trustwork.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{trustwork.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{trustwork.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{trustwork.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{trustwork.ErrInvalidDeadline, http.StatusUnprocessableEntity, "invalid_deadline"},
	{trustwork.ErrSelfDealing, http.StatusUnprocessableEntity, "self_dealing"},
	{trustwork.ErrInvalidAddress, http.StatusUnprocessableEntity, "invalid_address"},
	{trustwork.ErrEmptyDeliverable, http.StatusUnprocessableEntity, "empty_deliverable"},
	{trustwork.ErrInvalidOutcome, http.StatusUnprocessableEntity, "invalid_outcome"},
	{trustwork.ErrMissingField, http.StatusUnprocessableEntity, "missing_field"},
	{trustwork.ErrFieldTooLong, http.StatusUnprocessableEntity, "field_too_long"},
	{trustwork.ErrStoreClosed, http.StatusServiceUnavailable, "store_closed"},
}

// statusOf maps a ledger error to an HTTP status and a stable code.
func statusOf(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as an ErrorResponse. Internal errors are logged and
// their text withheld from the client.
func (a *API) fail(c *gin.Context, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}
