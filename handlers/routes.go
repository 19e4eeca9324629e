package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/backend/go-services/internal/auth"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/storage"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/middleware"
)

// Deps are the services the HTTP surface needs.
type Deps struct {
	Auth    *auth.Service
	Users   *users.Service
	Avatars storage.ObjectStore
	// RateLimit, when set, runs on every API route. Authenticated routes run
	// it after the token is verified so callers are keyed by subject.
	RateLimit gin.HandlerFunc
}

// RegisterRoutes mounts the identity API on r.
func RegisterRoutes(r *gin.Engine, d Deps) {
	limit := d.RateLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	requireAdmin := middleware.RequireRoles(d.Auth, models.RoleAdmin)

	public := r.Group("/", limit)
	authed := r.Group("/", middleware.AuthMiddleware(d.Auth), limit)
	NewAuthHandler(d.Auth).Register(public, authed)
	NewUsersHandler(d.Auth, d.Users, d.Avatars).Register(public, authed, requireAdmin)
	RegisterSwagger(r)
}
