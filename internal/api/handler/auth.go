package handler

import (
	"net/http"
	"strings"

	"linku/backend/internal/api/response"
	"linku/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

type devTokenRequest struct {
	Subject string `json:"subject"`
}

// IssueDevToken signs a token for a uid or handle. Only routed when a
// TokenIssuer is configured, which production deployments leave off.
func (h *Handler) IssueDevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Subject) == "" {
		response.RespondError(c, apperr.ErrInvalidInput.WithMessage("subject is required"))
		return
	}

	token, err := h.Tokens.Issue(strings.TrimSpace(req.Subject))
	if err != nil {
		h.log.Error("failed to sign token", "error", err)
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "subject": req.Subject})
}
