package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
)

type shareGuestRequest struct {
	GuestEmail  string   `json:"guestEmail" binding:"required"`
	ShareTokens []string `json:"shareTokens" binding:"required"`
}

// ShareGuestPhotos replaces the named guest's photo set with the photos
// behind the supplied share tokens, creating the guest if needed.
func (h HandlerSet) ShareGuestPhotos(c *gin.Context) {
	client, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req shareGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	guest, err := h.access.ShareGuestPhotos(c.Request.Context(), client, req.GuestEmail, req.ShareTokens)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest": toPrincipalResponse(guest)})
}
