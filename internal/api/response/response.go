// Package response writes JSON bodies and the shared error envelope.
package response

import (
	"errors"
	"net/http"

	"linku/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps err onto its HTTP status and aborts the chain.
// Unclassified errors are reported as a generic 503 so storage details never
// reach the client.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := APIError{Code: apperr.CodeOf(err), Message: "temporarily unavailable, retry later"}
	var e *apperr.Error
	if errors.As(err, &e) {
		body.Message = e.Message
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondEmpty answers 200 with an empty JSON object.
func RespondEmpty(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}
