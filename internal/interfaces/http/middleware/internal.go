package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// InternalSecretHeader carries the shared secret on service-to-service calls.
const InternalSecretHeader = "X-Internal-Secret"

const internalCallerKey = "internal_caller"

func hasInternalSecret(c *gin.Context, secret string) bool {
	got := c.GetHeader(InternalSecretHeader)
	if secret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// RequireInternal admits only callers presenting the internal API secret.
// An unset secret rejects everything.
func RequireInternal(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasInternalSecret(c, cfg.Internal.APISecret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid internal credentials",
			})
			return
		}
		c.Set(internalCallerKey, true)
		c.Next()
	}
}

// InternalOrAuth admits internal callers, falling back to bearer auth.
func InternalOrAuth(jwtManager *auth.JWTManager, cfg *config.Config) gin.HandlerFunc {
	bearer := AuthMiddleware(jwtManager)
	return func(c *gin.Context) {
		if hasInternalSecret(c, cfg.Internal.APISecret) {
			c.Set(internalCallerKey, true)
			c.Next()
			return
		}
		bearer(c)
	}
}

// IsInternalCaller reports whether the request carried the internal secret.
func IsInternalCaller(c *gin.Context) bool {
	return c.GetBool(internalCallerKey)
}
