package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/authz"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/tokens"
)

// ClaimsKey is the gin context key holding *tokens.Claims after AuthMiddleware.
const ClaimsKey = "claims"

// Authenticator validates raw access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*tokens.Claims, error)
}

// Authorizer decides role-based access for validated claims.
type Authorizer interface {
	Authorize(ctx context.Context, claims *tokens.Claims, required ...models.Role) authz.Decision
}

// AuthMiddleware returns a Gin middleware that validates Bearer tokens
func AuthMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var raw string
		if n, _ := fmt.Sscanf(header, "Bearer %s", &raw); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": "invalid Authorization header"})
			return
		}

		claims, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRoles allows the request when the caller holds any of roles.
// It must run after AuthMiddleware.
func RequireRoles(a Authorizer, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		dec := a.Authorize(c.Request.Context(), claims, roles...)
		if !dec.Allowed {
			abortWithError(c, dec.Reason)
			return
		}
		if dec.User != nil {
			c.Set("user", dec.User)
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*tokens.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokens.Claims)
	return claims, ok && claims != nil
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(autherr.HTTPStatus(err), gin.H{"error": autherr.Code(err), "message": autherr.Message(err)})
}
