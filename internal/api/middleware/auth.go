// internal/api/middleware/auth.go
package middleware

import (
	"strings"

	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// tokenFromRequest accepts the x-access-token header or an Authorization
// header with or without the Bearer prefix.
func tokenFromRequest(c *gin.Context) string {
	token := c.GetHeader("x-access-token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	if strings.HasPrefix(token, "Bearer ") {
		token = strings.TrimSpace(token[len("Bearer "):])
	}
	return token
}

// Authenticate verifies the token and puts its claims into the context.
func Authenticate(tokens *auth.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Verify(tokenFromRequest(c))
		if err != nil {
			log.Debug("token rejected", logger.String("path", c.FullPath()), logger.Error(err))
			response.Abort(c, log, apperr.NotAuthorized(""))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireDriver lets through tokens issued for a driver shift.
func RequireDriver(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := ClaimsFrom(c); claims == nil || !claims.IsDriver() {
			response.Abort(c, log, apperr.NotAuthorized(""))
			return
		}
		c.Next()
	}
}

// RequireAdmin lets through admin tokens only.
func RequireAdmin(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := ClaimsFrom(c); claims == nil || !claims.IsAdmin {
			response.Abort(c, log, apperr.NotAuthorized(""))
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Authenticate, or nil.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// SetClaims stores claims the way Authenticate does. The websocket endpoint
// uses it after reading the token from the query string.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
}
