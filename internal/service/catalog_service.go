package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/events"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/ids"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/media"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
)

// CatalogService owns the Photo and Collection vertices. Everything is
// keyed by surrogate id; the storage engine's own handles never cross this
// boundary.
type CatalogService struct {
	photos      PhotoStore
	collections CollectionStore
	edges       EdgeStore
	processor   media.Processor
	broadcaster events.Broadcaster
	cfg         *config.AppConfig
	log         zerolog.Logger
}

func NewCatalogService(
	photos PhotoStore,
	collections CollectionStore,
	edges EdgeStore,
	processor media.Processor,
	broadcaster events.Broadcaster,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		photos:      photos,
		collections: collections,
		edges:       edges,
		processor:   processor,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
	}
}

func (s *CatalogService) CreateCollection(ctx context.Context, owner models.Principal, title string) (models.Collection, error) {
	if owner.Role != models.RolePhotographer {
		return models.Collection{}, ErrAccessDenied
	}
	if title == "" {
		return models.Collection{}, ErrValidation
	}

	collection := models.Collection{
		ID:      ids.New(),
		OwnerID: owner.ID,
		Title:   title,
		Active:  true,
	}
	if err := s.collections.Create(ctx, collection); err != nil {
		return models.Collection{}, storageError("create collection", err)
	}

	// The creating write's handle is not trusted; re-resolve on the
	// surrogate id before returning.
	created, err := s.collections.GetByID(ctx, collection.ID)
	if err != nil {
		return models.Collection{}, storageError("reload collection", err)
	}
	return created, nil
}

type CreatePhotoInput struct {
	CollectionID string
	Data         []byte
	MIMEHint     string
	Tags         []string
}

// CreatePhoto ingests upload bytes through the image-processing
// collaborator, links the photo into its collection with the next order
// index, and arms the collection's auto-delete clock on the first link.
// Photos cannot exist outside a collection.
func (s *CatalogService) CreatePhoto(ctx context.Context, owner models.Principal, input CreatePhotoInput) (models.Photo, error) {
	if owner.Role != models.RolePhotographer {
		return models.Photo{}, ErrAccessDenied
	}
	if input.CollectionID == "" {
		return models.Photo{}, ErrValidation
	}

	collection, err := s.collections.GetByID(ctx, input.CollectionID)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionNotFound) {
			return models.Photo{}, ErrResourceNotFound
		}
		return models.Photo{}, storageError("load collection", err)
	}
	if collection.OwnerID != owner.ID {
		return models.Photo{}, ErrAccessDenied
	}
	if !collection.Active || collection.Deletion.Pending() {
		return models.Photo{}, ErrResourceUnavailable
	}

	photoID := ids.New()
	shareToken, err := ids.NewShareToken()
	if err != nil {
		return models.Photo{}, err
	}

	processed, err := s.processor.Process(ctx, photoID, input.Data, input.MIMEHint)
	if err != nil {
		return models.Photo{}, err
	}

	photo := models.Photo{
		ID:           photoID,
		OwnerID:      owner.ID,
		ShareToken:   shareToken,
		Bucket:       processed.Bucket,
		ObjectKey:    processed.ObjectKey,
		ThumbnailKey: processed.ThumbnailKey,
		Format:       processed.Format,
		Width:        processed.Width,
		Height:       processed.Height,
		SizeBytes:    processed.SizeBytes,
		Tags:         input.Tags,
		Active:       true,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return models.Photo{}, storageError("create photo", err)
	}

	orderIndex, err := s.edges.NextOrderIndex(ctx, collection.ID)
	if err != nil {
		return models.Photo{}, storageError("next order index", err)
	}
	membership := models.Edge{
		ID:         ids.New(),
		Kind:       models.EdgeCollectionPhoto,
		FromID:     collection.ID,
		ToID:       photo.ID,
		Active:     true,
		GrantedAt:  time.Now().UTC(),
		OrderIndex: orderIndex,
	}
	if err := s.edges.Upsert(ctx, membership); err != nil {
		return models.Photo{}, storageError("link photo", err)
	}

	// First successful link means the content is delivered; arm the expiry
	// clock if nobody armed it yet. Once set it is authoritative.
	if collection.AutoDeleteAt == nil {
		if err := s.collections.ArmAutoDelete(ctx, collection.ID, time.Now().UTC().Add(s.cfg.Lifecycle.AutoDeleteWindow)); err != nil {
			return models.Photo{}, storageError("arm auto delete", err)
		}
	}

	created, err := s.photos.GetByID(ctx, photo.ID)
	if err != nil {
		return models.Photo{}, storageError("reload photo", err)
	}

	s.broadcaster.Emit(ctx, "photo.created", map[string]any{
		"photoId":      created.ID,
		"collectionId": collection.ID,
	}, []string{owner.ID})

	return created, nil
}

// GetPhoto is the authenticated read, keyed on surrogate id. The caller is
// expected to have passed authorization already.
func (s *CatalogService) GetPhoto(ctx context.Context, photoID string) (models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return models.Photo{}, ErrResourceNotFound
		}
		return models.Photo{}, storageError("load photo", err)
	}
	return photo, nil
}

// GetPublic is the only entry point keyed on the share token, and the
// share token is the only key it accepts; surrogate ids are rejected by
// construction since the lookup never touches the id column.
func (s *CatalogService) GetPublic(ctx context.Context, shareToken string) (models.Photo, error) {
	if shareToken == "" {
		return models.Photo{}, ErrValidation
	}

	photo, err := s.photos.GetByShareToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return models.Photo{}, ErrResourceNotFound
		}
		return models.Photo{}, storageError("load photo", err)
	}
	// A dying photo is indistinguishable from a missing one on the public
	// path.
	if !photo.Active || photo.Deletion.Pending() {
		return models.Photo{}, ErrResourceNotFound
	}
	return photo, nil
}

// ListCollectionPhotos returns the active members of a collection in their
// order-index sequence. Authorization is the caller's job.
func (s *CatalogService) ListCollectionPhotos(ctx context.Context, collectionID string) ([]models.Photo, error) {
	now := time.Now().UTC()
	memberships, err := s.edges.ListFrom(ctx, models.EdgeCollectionPhoto, collectionID)
	if err != nil {
		return nil, storageError("list collection photos", err)
	}

	order := make(map[string]int, len(memberships))
	var photoIDs []string
	for _, membership := range memberships {
		if !membership.Current(now) {
			continue
		}
		order[membership.ToID] = membership.OrderIndex
		photoIDs = append(photoIDs, membership.ToID)
	}
	if len(photoIDs) == 0 {
		return nil, nil
	}

	photos, err := s.photos.ListByIDs(ctx, photoIDs)
	if err != nil {
		return nil, storageError("load photos", err)
	}

	visible := photos[:0]
	for _, photo := range photos {
		if photo.Active && !photo.Deletion.Pending() {
			visible = append(visible, photo)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return order[visible[i].ID] < order[visible[j].ID]
	})
	return visible, nil
}

func (s *CatalogService) RetagPhoto(ctx context.Context, owner models.Principal, photoID string, tags []string) (models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return models.Photo{}, ErrResourceNotFound
		}
		return models.Photo{}, storageError("load photo", err)
	}
	if owner.Role != models.RoleAdmin && photo.OwnerID != owner.ID {
		return models.Photo{}, ErrAccessDenied
	}

	if err := s.photos.Retag(ctx, photoID, tags); err != nil {
		return models.Photo{}, storageError("retag photo", err)
	}
	photo.Tags = tags
	return photo, nil
}

func (s *CatalogService) RenameCollection(ctx context.Context, owner models.Principal, collectionID string, title string) error {
	if title == "" {
		return ErrValidation
	}
	collection, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionNotFound) {
			return ErrResourceNotFound
		}
		return storageError("load collection", err)
	}
	if owner.Role != models.RoleAdmin && collection.OwnerID != owner.ID {
		return ErrAccessDenied
	}
	if err := s.collections.Rename(ctx, collectionID, title); err != nil {
		return storageError("rename collection", err)
	}
	return nil
}

func (s *CatalogService) ListOwnCollections(ctx context.Context, owner models.Principal) ([]models.Collection, error) {
	collections, err := s.collections.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, storageError("list collections", err)
	}
	visible := collections[:0]
	for _, collection := range collections {
		if collection.Active {
			visible = append(visible, collection)
		}
	}
	return visible, nil
}
