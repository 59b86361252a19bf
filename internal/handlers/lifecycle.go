package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

func parseEntityKind(raw string) (models.EntityKind, bool) {
	switch models.EntityKind(raw) {
	case models.KindPhotographer, models.KindClient, models.KindGuest,
		models.KindPhoto, models.KindCollection:
		return models.EntityKind(raw), true
	}
	return "", false
}

// authorizeLifecycle gates the mark/restore endpoints: admins act on
// anything, photographers only on resources they own, clients only on the
// guests they manage. The remaining principal kinds are admin territory.
func (h HandlerSet) authorizeLifecycle(c *gin.Context, principal models.Principal, kind models.EntityKind, id string) bool {
	if principal.Role == models.RoleAdmin {
		return true
	}
	if kind == models.KindPhoto || kind == models.KindCollection {
		if err := h.access.Authorize(c.Request.Context(), principal, id, service.OpDelete); err != nil {
			respondError(c, err)
			return false
		}
		return true
	}
	if kind == models.KindGuest {
		if err := h.access.AuthorizeGuestManagement(c.Request.Context(), principal, id); err != nil {
			respondError(c, err)
			return false
		}
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "access_denied"})
	return false
}

type markDeletionRequest struct {
	Reason string `json:"reason"`
}

func (h HandlerSet) MarkForDeletion(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	kind, ok := parseEntityKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_entity_kind"})
		return
	}
	id := c.Param("id")
	if !h.authorizeLifecycle(c, principal, kind, id) {
		return
	}

	var req markDeletionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.lifecycle.MarkForDeletion(c.Request.Context(), kind, id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending_deletion"})
}

func (h HandlerSet) Restore(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	kind, ok := parseEntityKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_entity_kind"})
		return
	}
	id := c.Param("id")
	if !h.authorizeLifecycle(c, principal, kind, id) {
		return
	}

	if err := h.lifecycle.Restore(c.Request.Context(), kind, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

// Sweep triggers one lifecycle pass on demand; the scheduler runs the same
// pass on its own cadence.
func (h HandlerSet) Sweep(c *gin.Context) {
	report := h.lifecycle.Sweep(c.Request.Context(), time.Now().UTC())
	c.JSON(http.StatusOK, gin.H{
		"collectionsAutoMarked": report.CollectionsAutoMarked,
		"guestsDeactivated":     report.GuestsDeactivated,
		"photographersPurged":   report.PhotographersPurged,
		"clientsPurged":         report.ClientsPurged,
		"guestsPurged":          report.GuestsPurged,
		"collectionsPurged":     report.CollectionsPurged,
		"photosPurged":          report.PhotosPurged,
		"sessionsDeleted":       report.SessionsDeleted,
	})
}
