package middleware

import (
	"net/http"
	"strings"

	"focusflow/internal/auth"
	"focusflow/internal/logging"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the authenticated account.
const UsernameKey = "username"

// bearerToken reads the token from "Authorization: Bearer <token>" or, for
// websocket upgrades where browsers cannot set headers, from ?token=.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

func reject(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="focusflow"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// JWTAuthMiddleware requires a valid token on every request once a signing
// secret is configured. Without one the API is open.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Enabled() {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			reject(c, "Authorization token is required")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			logging.Logger.WithError(err).WithField("path", c.Request.URL.Path).Debug("rejected token")
			reject(c, "Invalid or expired token")
			return
		}

		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}
