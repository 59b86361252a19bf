package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

var ErrCollectionNotFound = errors.New("collection not found")

const collectionColumns = `
	id, owner_id, title, active, auto_delete_at,
	deleted_at, scheduled_purge_at, deletion_reason, deletion_origin,
	created_at, updated_at
`

type CollectionRepository struct {
	pool *pgxpool.Pool
}

func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

func scanCollection(row pgx.Row) (models.Collection, error) {
	var c models.Collection
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Active,
		&c.AutoDeleteAt,
		&c.Deletion.DeletedAt,
		&c.Deletion.ScheduledPurgeAt,
		&c.Deletion.Reason,
		&c.Deletion.Origin,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Collection{}, ErrCollectionNotFound
		}
		return models.Collection{}, err
	}
	return c, nil
}

func (r *CollectionRepository) Create(ctx context.Context, c models.Collection) error {
	const query = `
		INSERT INTO collections (
			id, owner_id, title, active, auto_delete_at,
			deletion_reason, deletion_origin, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, '', '', NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, c.ID, c.OwnerID, c.Title, c.Active, c.AutoDeleteAt)
	return err
}

func (r *CollectionRepository) GetByID(ctx context.Context, id string) (models.Collection, error) {
	const query = `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	return scanCollection(r.pool.QueryRow(ctx, query, id))
}

func (r *CollectionRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Collection, error) {
	const query = `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

func (r *CollectionRepository) Rename(ctx context.Context, id string, title string) error {
	const query = `UPDATE collections SET title = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, title)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// ArmAutoDelete sets the expiry clock only when it is not already armed.
// Once set it is the authoritative clock for the collection.
func (r *CollectionRepository) ArmAutoDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE collections
		SET auto_delete_at = $2, updated_at = NOW()
		WHERE id = $1 AND auto_delete_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *CollectionRepository) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	const query = `
		UPDATE collections
		SET active = $2,
		    deleted_at = $3,
		    scheduled_purge_at = $4,
		    deletion_reason = $5,
		    deletion_origin = $6,
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, active, d.DeletedAt, d.ScheduledPurgeAt, d.Reason, d.Origin)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// ListAutoExpired returns active collections whose delivery clock elapsed
// and that are not yet scheduled for purge.
func (r *CollectionRepository) ListAutoExpired(ctx context.Context, now time.Time, limit int) ([]models.Collection, error) {
	const query = `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE scheduled_purge_at IS NULL AND auto_delete_at IS NOT NULL AND auto_delete_at <= $1
		ORDER BY auto_delete_at
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

func (r *CollectionRepository) ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Collection, error) {
	const query = `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE scheduled_purge_at IS NOT NULL AND scheduled_purge_at <= $1
		ORDER BY scheduled_purge_at
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

func (r *CollectionRepository) Purge(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE from_id = $1 OR to_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
		return err
	})
}

func (r *CollectionRepository) list(ctx context.Context, query string, args ...any) ([]models.Collection, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}
