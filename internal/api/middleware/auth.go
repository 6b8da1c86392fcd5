package middleware

import (
	"linku/backend/internal/api/response"
	"linku/backend/internal/apperr"
	"linku/backend/internal/auth"
	"linku/backend/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

const uidKey = "uid"

type AuthMiddleware struct {
	log      *logger.Logger
	identity auth.IdentityProvider
}

func NewAuthMiddleware(log *logger.Logger, identity auth.IdentityProvider) *AuthMiddleware {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthMiddleware{log: log.With("middleware", "auth"), identity: identity}
}

// RequireAuth resolves the bearer credential to a uid and stores it on the
// context. CORS preflights never reach it.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := am.Authenticate(c)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		c.Set(uidKey, uid)
		c.Next()
	}
}

// Authenticate verifies the request's token without touching the chain.
func (am *AuthMiddleware) Authenticate(c *gin.Context) (uint, error) {
	token := ExtractToken(c)
	if token == "" {
		return 0, apperr.ErrNotAuthenticated.WithMessage("missing bearer token")
	}
	uid, err := am.identity.Verify(c.Request.Context(), token)
	if err != nil {
		am.log.Debug("token rejected", "error", err, "path", c.Request.URL.Path)
		return 0, err
	}
	return uid, nil
}

// ExtractToken reads the Authorization header, then the token query
// parameter used by browser websocket clients.
func ExtractToken(c *gin.Context) string {
	if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return c.Query("token")
}

// UID returns the authenticated uid set by RequireAuth.
func UID(c *gin.Context) uint {
	return c.GetUint(uidKey)
}
