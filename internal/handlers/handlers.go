package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/middleware"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	sessions  *service.SessionService
	access    *service.AccessService
	catalog   *service.CatalogService
	lifecycle *service.LifecycleService
	db        *pgxpool.Pool
	cache     *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *service.AuthService,
	sessions *service.SessionService,
	access *service.AccessService,
	catalog *service.CatalogService,
	lifecycle *service.LifecycleService,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      auth,
		sessions:  sessions,
		access:    access,
		catalog:   catalog,
		lifecycle: lifecycle,
		db:        db,
		cache:     cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/rotate", h.RotateSession)
		auth.POST("/logout", h.Logout)

		// The public share-token read is the only unauthenticated resource
		// path.
		v1.GET("/public/photos/:shareToken", h.GetPublicPhoto)

		protected := v1.Group("")
		protected.Use(middleware.Auth(h.sessions))

		protected.POST("/photographers",
			middleware.RequireRoles(models.RoleAdmin), h.CreatePhotographer)
		protected.POST("/clients",
			middleware.RequireRoles(models.RolePhotographer), h.CreateClient)

		protected.GET("/collections",
			middleware.RequireRoles(models.RolePhotographer), h.ListCollections)
		protected.POST("/collections",
			middleware.RequireRoles(models.RolePhotographer), h.CreateCollection)
		protected.PATCH("/collections/:id",
			middleware.RequireRoles(models.RolePhotographer, models.RoleAdmin), h.RenameCollection)
		protected.GET("/collections/:id/photos", h.ListCollectionPhotos)
		protected.POST("/collections/:id/photos",
			middleware.RequireRoles(models.RolePhotographer), h.UploadPhoto)
		protected.POST("/collections/:id/share",
			middleware.RequireRoles(models.RolePhotographer, models.RoleAdmin), h.ShareCollection)

		protected.GET("/photos/:id", h.GetPhoto)
		protected.PATCH("/photos/:id/tags",
			middleware.RequireRoles(models.RolePhotographer, models.RoleAdmin), h.RetagPhoto)

		protected.POST("/guests/share",
			middleware.RequireRoles(models.RoleClient), h.ShareGuestPhotos)

		admin := protected.Group("/lifecycle")
		admin.POST("/:kind/:id/delete", h.MarkForDeletion)
		admin.POST("/:kind/:id/restore", h.Restore)
		admin.POST("/sweep", middleware.RequireRoles(models.RoleAdmin), h.Sweep)
	}
}

// respondError maps the service error taxonomy onto HTTP in one place, so
// every route leaks exactly as much as the taxonomy allows.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
	case errors.Is(err, service.ErrGuestExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Guest access has expired"})
	case errors.Is(err, service.ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session_invalid"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access_denied"})
	case errors.Is(err, service.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, service.ErrResourceUnavailable):
		c.JSON(http.StatusGone, gin.H{"error": "resource_unavailable"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed"})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
