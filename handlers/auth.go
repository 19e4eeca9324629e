package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/backend/go-services/internal/auth"
	"github.com/rentwise/rentwise/backend/go-services/internal/federation"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
	"github.com/rentwise/rentwise/backend/go-services/pkg/middleware"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Phone           string `json:"phone" binding:"required,cnphone"`
	Password        string `json:"password" binding:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Nickname        string `json:"nickname" binding:"omitempty,max=20"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// FederatedLoginRequest is the body of the third-party login routes
type FederatedLoginRequest struct {
	Code      string `json:"code" binding:"required"`
	Nickname  string `json:"nickname" binding:"omitempty,max=20"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url"`
}

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(a *auth.Service) *AuthHandler {
	RegisterValidators()
	return &AuthHandler{auth: a}
}

// Register routes under /auth and the legacy /wechat/login.
// Logout is mounted on the authenticated group.
func (h *AuthHandler) Register(public, authed *gin.RouterGroup) {
	a := public.Group("/auth")
	a.POST("/register", h.RegisterWithPassword)
	a.POST("/login", h.Login)
	a.POST("/federated/:provider/login", h.FederatedLogin)
	authed.POST("/auth/logout", h.Logout)

	public.POST("/wechat/login", h.WechatLogin)
}

func (h *AuthHandler) RegisterWithPassword(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.auth.RegisterWithPassword(c.Request.Context(), req.Phone, req.Password, req.ConfirmPassword, req.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.auth.LoginWithPassword(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logout revokes the presented access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		logger.Errorf("logout: revoke token for %s: %v", claims.UserID(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) FederatedLogin(c *gin.Context) {
	h.federatedLogin(c, c.Param("provider"))
}

func (h *AuthHandler) WechatLogin(c *gin.Context) {
	h.federatedLogin(c, federation.ProviderWechat)
}

func (h *AuthHandler) federatedLogin(c *gin.Context, provider string) {
	var req FederatedLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	logger.Debugf("federated login: provider=%s code length=%d", provider, len(req.Code))
	res, err := h.auth.LoginWithFederatedIdentity(c.Request.Context(), federation.LoginRequest{
		Provider:    provider,
		Code:        req.Code,
		DisplayName: req.Nickname,
		Avatar:      req.AvatarURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
