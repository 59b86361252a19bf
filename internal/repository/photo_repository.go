package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

var ErrPhotoNotFound = errors.New("photo not found")

const photoColumns = `
	id, owner_id, share_token, bucket, object_key, thumbnail_key, format,
	width, height, size_bytes, tags, active,
	deleted_at, scheduled_purge_at, deletion_reason, deletion_origin,
	created_at, updated_at
`

type PhotoRepository struct {
	pool *pgxpool.Pool
}

func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

func scanPhoto(row pgx.Row) (models.Photo, error) {
	var p models.Photo
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.ShareToken,
		&p.Bucket,
		&p.ObjectKey,
		&p.ThumbnailKey,
		&p.Format,
		&p.Width,
		&p.Height,
		&p.SizeBytes,
		&p.Tags,
		&p.Active,
		&p.Deletion.DeletedAt,
		&p.Deletion.ScheduledPurgeAt,
		&p.Deletion.Reason,
		&p.Deletion.Origin,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return p, nil
}

func (r *PhotoRepository) Create(ctx context.Context, p models.Photo) error {
	const query = `
		INSERT INTO photos (
			id, owner_id, share_token, bucket, object_key, thumbnail_key, format,
			width, height, size_bytes, tags, active,
			deletion_reason, deletion_origin, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '', '', NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.ShareToken,
		p.Bucket,
		p.ObjectKey,
		p.ThumbnailKey,
		p.Format,
		p.Width,
		p.Height,
		p.SizeBytes,
		p.Tags,
		p.Active,
	)
	return err
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (models.Photo, error) {
	const query = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	return scanPhoto(r.pool.QueryRow(ctx, query, id))
}

// GetByShareToken is the only lookup keyed on the public token. It never
// falls back to the surrogate id; that would turn the public endpoint into
// an id oracle.
func (r *PhotoRepository) GetByShareToken(ctx context.Context, shareToken string) (models.Photo, error) {
	const query = `SELECT ` + photoColumns + ` FROM photos WHERE share_token = $1`
	return scanPhoto(r.pool.QueryRow(ctx, query, shareToken))
}

func (r *PhotoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Photo, error) {
	const query = `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

func (r *PhotoRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Photo, error) {
	const query = `SELECT ` + photoColumns + ` FROM photos WHERE id = ANY($1)`
	return r.list(ctx, query, ids)
}

func (r *PhotoRepository) Retag(ctx context.Context, id string, tags []string) error {
	const query = `UPDATE photos SET tags = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, tags)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}
	return nil
}

func (r *PhotoRepository) SetThumbnailKey(ctx context.Context, id string, key string) error {
	const query = `UPDATE photos SET thumbnail_key = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, key)
	return err
}

func (r *PhotoRepository) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	const query = `
		UPDATE photos
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
		return ErrPhotoNotFound
	}
	return nil
}

func (r *PhotoRepository) ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Photo, error) {
	const query = `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE scheduled_purge_at IS NOT NULL AND scheduled_purge_at <= $1
		ORDER BY scheduled_purge_at
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

func (r *PhotoRepository) Purge(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE from_id = $1 OR to_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
		return err
	})
}

func (r *PhotoRepository) list(ctx context.Context, query string, args ...any) ([]models.Photo, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
