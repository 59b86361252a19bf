package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

const maxUploadBytes = 50 << 20

type photoResponse struct {
	ID         string   `json:"id"`
	ShareToken string   `json:"shareToken"`
	Format     string   `json:"format"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	SizeBytes  int64    `json:"sizeBytes"`
	Tags       []string `json:"tags"`
	CreatedAt  string   `json:"createdAt"`
}

func toPhotoResponse(photo models.Photo) photoResponse {
	tags := photo.Tags
	if tags == nil {
		tags = []string{}
	}
	return photoResponse{
		ID:         photo.ID,
		ShareToken: photo.ShareToken,
		Format:     photo.Format,
		Width:      photo.Width,
		Height:     photo.Height,
		SizeBytes:  photo.SizeBytes,
		Tags:       tags,
		CreatedAt:  photo.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// UploadPhoto takes a multipart upload and ingests it into the collection
// named in the path. Tags ride along as a comma-separated form field.
func (h HandlerSet) UploadPhoto(c *gin.Context) {
	owner, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	photo, err := h.catalog.CreatePhoto(c.Request.Context(), owner, service.CreatePhotoInput{
		CollectionID: c.Param("id"),
		Data:         data,
		MIMEHint:     fileHeader.Header.Get("Content-Type"),
		Tags:         tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPhotoResponse(photo))
}

// GetPhoto serves the authenticated read path, keyed on surrogate id.
func (h HandlerSet) GetPhoto(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	photoID := c.Param("id")
	if err := h.access.Authorize(c.Request.Context(), principal, photoID, service.OpRead); err != nil {
		respondError(c, err)
		return
	}

	photo, err := h.catalog.GetPhoto(c.Request.Context(), photoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPhotoResponse(photo))
}

type retagRequest struct {
	Tags []string `json:"tags"`
}

func (h HandlerSet) RetagPhoto(c *gin.Context) {
	owner, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req retagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	photo, err := h.catalog.RetagPhoto(c.Request.Context(), owner, c.Param("id"), req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPhotoResponse(photo))
}

// GetPublicPhoto is the unauthenticated share-link endpoint. The share token
// is the only accepted key.
func (h HandlerSet) GetPublicPhoto(c *gin.Context) {
	photo, err := h.catalog.GetPublic(c.Request.Context(), c.Param("shareToken"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPhotoResponse(photo))
}
