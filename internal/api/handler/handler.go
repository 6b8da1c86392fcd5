package handler

import (
	"strconv"

	"linku/backend/internal/api/middleware"
	"linku/backend/internal/apperr"
	"linku/backend/internal/auth"
	"linku/backend/internal/chat"
	"linku/backend/internal/chathub"
	"linku/backend/internal/linku"
	"linku/backend/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler serves the chat, LinkU and /ws endpoints.
type Handler struct {
	Chat     *chat.Service
	Linku    *linku.Service
	Bus      *chathub.Bus
	Auth     *middleware.AuthMiddleware
	Tokens   auth.TokenIssuer
	WSBuffer int

	origins []string
	log     *logger.Logger
}

type Config struct {
	Chat     *chat.Service
	Linku    *linku.Service
	Bus      *chathub.Bus
	Auth     *middleware.AuthMiddleware
	Tokens   auth.TokenIssuer // nil disables the dev token endpoint
	WSBuffer int
	Origins  []string
	Log      *logger.Logger
}

func NewHandler(cfg Config) *Handler {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		Chat:     cfg.Chat,
		Linku:    cfg.Linku,
		Bus:      cfg.Bus,
		Auth:     cfg.Auth,
		Tokens:   cfg.Tokens,
		WSBuffer: cfg.WSBuffer,
		origins:  cfg.Origins,
		log:      log.With("component", "http"),
	}
}

func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrInvalidInput.WithMessage("%s must be a positive integer", name)
	}
	return uint(id), nil
}
