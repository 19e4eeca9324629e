package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/backend/go-services/internal/auth"
	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/storage"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
	"github.com/rentwise/rentwise/backend/go-services/pkg/middleware"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 2 << 20

var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// UpdateProfileRequest is the body of PATCH /users/me
type UpdateProfileRequest struct {
	Nickname  string `json:"nickname" binding:"omitempty,max=20"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url"`
}

// ChangePasswordRequest is the body of PUT /users/me/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password" binding:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// SetRolesRequest is the body of PUT /admin/users/:id/roles
type SetRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1"`
}

// UsersHandler serves profile and role management endpoints.
type UsersHandler struct {
	auth    *auth.Service
	users   *users.Service
	avatars storage.ObjectStore
}

// NewUsersHandler creates the handler. avatars may be nil, in which case
// the upload endpoints answer 503.
func NewUsersHandler(a *auth.Service, u *users.Service, avatars storage.ObjectStore) *UsersHandler {
	RegisterValidators()
	return &UsersHandler{auth: a, users: u, avatars: avatars}
}

// Register mounts /users and /admin routes. authed has already validated
// the token, so requireAdmin can read the claims.
func (h *UsersHandler) Register(public, authed *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	me := authed.Group("/users/me")
	me.GET("", h.Me)
	me.PATCH("", h.UpdateMe)
	me.PUT("/password", h.ChangePassword)
	me.PUT("/avatar", h.UploadAvatar)

	public.GET("/users/:id/avatar", h.Avatar)

	admin := authed.Group("/admin", requireAdmin)
	admin.PUT("/users/:id/roles", h.SetRoles)
}

// Me returns the caller's stored profile.
func (h *UsersHandler) Me(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	u, err := h.users.FindByID(c.Request.Context(), claims.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	if u == nil {
		respondError(c, autherr.ErrUnknownSubject)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, _ := middleware.ClaimsFrom(c)
	u, err := h.users.UpdateProfileFields(c.Request.Context(), claims.UserID(), users.ProfileUpdate{
		DisplayName: req.Nickname,
		Avatar:      req.AvatarURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UsersHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, _ := middleware.ClaimsFrom(c)
	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID(), req.CurrentPassword, req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// UploadAvatar stores the multipart field "avatar" and points the profile at it.
func (h *UsersHandler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": "avatar storage not configured"})
		return
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		respondBindError(c, err)
		return
	}
	if fh.Size > MaxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large", "message": "avatar exceeds 2MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxAvatarBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(data) > MaxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large", "message": "avatar exceeds 2MB"})
		return
	}
	contentType := http.DetectContentType(data)
	if !avatarTypes[contentType] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_media_type", "message": "avatar must be png, jpeg, gif or webp"})
		return
	}

	claims, _ := middleware.ClaimsFrom(c)
	id := claims.UserID()
	if err := h.avatars.UploadFile(c.Request.Context(), storage.AvatarKey(id), bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		respondError(c, err)
		return
	}
	u, err := h.users.UpdateProfileFields(c.Request.Context(), id, users.ProfileUpdate{Avatar: "/users/" + id + "/avatar"})
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("avatar updated for %s (%d bytes, %s)", id, len(data), contentType)
	c.JSON(http.StatusOK, u)
}

// Avatar streams a stored avatar image.
func (h *UsersHandler) Avatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "avatar not found"})
		return
	}
	rc, contentType, err := h.avatars.DownloadFile(c.Request.Context(), storage.AvatarKey(c.Param("id")))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "avatar not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// SetRoles replaces a user's roles.
func (h *UsersHandler) SetRoles(c *gin.Context) {
	var req SetRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	roles, err := models.ParseRoles(req.Roles)
	if err != nil {
		respondError(c, err)
		return
	}
	u, err := h.users.SetRoles(c.Request.Context(), c.Param("id"), roles)
	if err != nil {
		respondError(c, err)
		return
	}
	claims, _ := middleware.ClaimsFrom(c)
	logger.Infof("roles of %s set to %v by %s", u.ID, u.Roles, claims.UserID())
	c.JSON(http.StatusOK, u)
}
