// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medibook/services/identity"
	"medibook/utils"
)

// AuthMiddleware resolves the bearer token to a user id and stores it on both the gin
// context (utils.UserIDKey) and the request context (identity.WithUserID).
func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.JSONError(c, zap.L(), http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid Authorization header", "")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := provider.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			utils.JSONError(c, zap.L(), http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid token", "")
			return
		}

		c.Set(utils.UserIDKey, userID)
		c.Request = c.Request.WithContext(identity.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}
