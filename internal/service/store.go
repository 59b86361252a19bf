package service

import (
	"context"
	"time"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

// The services consume the durable graph through these interfaces. The
// repository package implements them on pgx; tests run against in-memory
// fakes.

type PrincipalStore interface {
	Create(ctx context.Context, p models.Principal) error
	GetByID(ctx context.Context, id string) (models.Principal, error)
	FindByEmailDigest(ctx context.Context, role models.Role, digest []byte) (models.Principal, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	SetExpiresAt(ctx context.Context, id string, at *time.Time) error
	UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error
	ListByParent(ctx context.Context, parentID string, role models.Role) ([]models.Principal, error)
	ListPurgeDue(ctx context.Context, role models.Role, now time.Time, limit int) ([]models.Principal, error)
	ListExpiredGuests(ctx context.Context, now time.Time, limit int) ([]models.Principal, error)
	Purge(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByDigest(ctx context.Context, digest []byte) (models.Session, error)
	DeleteByDigest(ctx context.Context, digest []byte) error
	DeleteByPrincipal(ctx context.Context, principalID string) error
	Rotate(ctx context.Context, oldDigest []byte, session models.Session) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CollectionStore interface {
	Create(ctx context.Context, c models.Collection) error
	GetByID(ctx context.Context, id string) (models.Collection, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Collection, error)
	Rename(ctx context.Context, id string, title string) error
	ArmAutoDelete(ctx context.Context, id string, at time.Time) error
	UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error
	ListAutoExpired(ctx context.Context, now time.Time, limit int) ([]models.Collection, error)
	ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Collection, error)
	Purge(ctx context.Context, id string) error
}

type PhotoStore interface {
	Create(ctx context.Context, p models.Photo) error
	GetByID(ctx context.Context, id string) (models.Photo, error)
	GetByShareToken(ctx context.Context, shareToken string) (models.Photo, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Photo, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Photo, error)
	Retag(ctx context.Context, id string, tags []string) error
	SetThumbnailKey(ctx context.Context, id string, key string) error
	UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error
	ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Photo, error)
	Purge(ctx context.Context, id string) error
}

type EdgeStore interface {
	Upsert(ctx context.Context, e models.Edge) error
	Get(ctx context.Context, kind models.EdgeKind, fromID string, toID string) (models.Edge, error)
	Deactivate(ctx context.Context, kind models.EdgeKind, fromID string, toID string) error
	ListFrom(ctx context.Context, kind models.EdgeKind, fromID string) ([]models.Edge, error)
	ListTo(ctx context.Context, kind models.EdgeKind, toID string) ([]models.Edge, error)
	NextOrderIndex(ctx context.Context, collectionID string) (int, error)
}

// BinaryStore is the slice of the object store the lifecycle engine needs
// when purging photo bytes.
type BinaryStore interface {
	Remove(ctx context.Context, bucket string, key string) error
}
