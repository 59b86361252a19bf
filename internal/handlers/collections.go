package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

type collectionResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	AutoDeleteAt string `json:"autoDeleteAt,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

func toCollectionResponse(col models.Collection) collectionResponse {
	resp := collectionResponse{
		ID:        col.ID,
		Title:     col.Title,
		CreatedAt: col.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if col.AutoDeleteAt != nil {
		resp.AutoDeleteAt = col.AutoDeleteAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

type createCollectionRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h HandlerSet) CreateCollection(c *gin.Context) {
	owner, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	collection, err := h.catalog.CreateCollection(c.Request.Context(), owner, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCollectionResponse(collection))
}

func (h HandlerSet) ListCollections(c *gin.Context) {
	owner, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	collections, err := h.catalog.ListOwnCollections(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]collectionResponse, 0, len(collections))
	for _, collection := range collections {
		out = append(out, toCollectionResponse(collection))
	}
	c.JSON(http.StatusOK, gin.H{"collections": out})
}

type renameCollectionRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h HandlerSet) RenameCollection(c *gin.Context) {
	owner, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req renameCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.catalog.RenameCollection(c.Request.Context(), owner, c.Param("id"), req.Title); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

// ListCollectionPhotos serves owners, admins, and clients the collection was
// shared with; the access decision happens before any content is read.
func (h HandlerSet) ListCollectionPhotos(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	collectionID := c.Param("id")
	if err := h.access.Authorize(c.Request.Context(), principal, collectionID, service.OpRead); err != nil {
		respondError(c, err)
		return
	}

	photos, err := h.catalog.ListCollectionPhotos(c.Request.Context(), collectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]photoResponse, 0, len(photos))
	for _, photo := range photos {
		out = append(out, toPhotoResponse(photo))
	}
	c.JSON(http.StatusOK, gin.H{"photos": out})
}

type shareCollectionRequest struct {
	ClientID string `json:"clientId" binding:"required"`
}

func (h HandlerSet) ShareCollection(c *gin.Context) {
	sharer, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req shareCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.access.ShareCollection(c.Request.Context(), sharer, c.Param("id"), req.ClientID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "shared"})
}
