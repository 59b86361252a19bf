package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type principalResponse struct {
	ID                   string `json:"id"`
	Role                 string `json:"role"`
	DisplayName          string `json:"displayName"`
	MustRotateCredential bool   `json:"mustRotateCredential"`
	ExpiresAt            string `json:"expiresAt,omitempty"`
}

func toPrincipalResponse(p models.Principal) principalResponse {
	resp := principalResponse{
		ID:                   p.ID,
		Role:                 string(p.Role),
		DisplayName:          p.DisplayName,
		MustRotateCredential: p.MustRotateCredential,
	}
	if p.ExpiresAt != nil {
		resp.ExpiresAt = p.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Role:     models.Role(req.Role),
		Email:    req.Email,
		Password: req.Password,
		Meta:     clientMeta(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":   result.Tokens.AccessToken,
		"sessionSecret": result.Tokens.SessionSecret,
		"principal":     toPrincipalResponse(result.Principal),
	})
}

type sessionRequest struct {
	SessionSecret string `json:"sessionSecret" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	accessToken, err := h.sessions.Refresh(c.Request.Context(), req.SessionSecret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// RotateSession swaps the long-lived session reference for a fresh one. The
// caller proves possession of the old secret; the access token in the
// Authorization header identifies the principal.
func (h HandlerSet) RotateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	accessToken, err := h.sessions.Refresh(c.Request.Context(), req.SessionSecret)
	if err != nil {
		respondError(c, err)
		return
	}
	principal, err := h.sessions.Authenticate(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, err)
		return
	}

	tokens, err := h.sessions.Rotate(c.Request.Context(), req.SessionSecret, principal, clientMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":   tokens.AccessToken,
		"sessionSecret": tokens.SessionSecret,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	h.sessions.Revoke(c.Request.Context(), req.SessionSecret)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

type createPrincipalRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

func (h HandlerSet) CreatePhotographer(c *gin.Context) {
	h.createPrincipal(c, h.auth.CreatePhotographer)
}

func (h HandlerSet) CreateClient(c *gin.Context) {
	h.createPrincipal(c, h.auth.CreateClient)
}

func (h HandlerSet) createPrincipal(
	c *gin.Context,
	create func(ctx context.Context, creator models.Principal, input service.CreatePrincipalInput) (models.Principal, error),
) {
	creator, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createPrincipalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := create(c.Request.Context(), creator, service.CreatePrincipalInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPrincipalResponse(created))
}
