package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

var ErrEdgeNotFound = errors.New("edge not found")

const edgeColumns = `id, kind, from_id, to_id, active, granted_at, expires_at, order_index`

type EdgeRepository struct {
	pool *pgxpool.Pool
}

func NewEdgeRepository(pool *pgxpool.Pool) *EdgeRepository {
	return &EdgeRepository{pool: pool}
}

func scanEdge(row pgx.Row) (models.Edge, error) {
	var e models.Edge
	if err := row.Scan(
		&e.ID,
		&e.Kind,
		&e.FromID,
		&e.ToID,
		&e.Active,
		&e.GrantedAt,
		&e.ExpiresAt,
		&e.OrderIndex,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Edge{}, ErrEdgeNotFound
		}
		return models.Edge{}, err
	}
	return e, nil
}

// Upsert inserts the edge or, when a row for (kind, from, to) already
// exists, refreshes it in place. Duplicate edges for one pair are a
// data-integrity bug; the unique index plus this upsert keeps them
// impossible.
func (r *EdgeRepository) Upsert(ctx context.Context, e models.Edge) error {
	const query = `
		INSERT INTO edges (id, kind, from_id, to_id, active, granted_at, expires_at, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (kind, from_id, to_id)
		DO UPDATE SET
			active = EXCLUDED.active,
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			order_index = EXCLUDED.order_index
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Kind, e.FromID, e.ToID, e.Active, e.GrantedAt, e.ExpiresAt, e.OrderIndex,
	)
	return err
}

func (r *EdgeRepository) Get(ctx context.Context, kind models.EdgeKind, fromID string, toID string) (models.Edge, error) {
	const query = `SELECT ` + edgeColumns + ` FROM edges WHERE kind = $1 AND from_id = $2 AND to_id = $3`
	return scanEdge(r.pool.QueryRow(ctx, query, kind, fromID, toID))
}

// Deactivate revokes one edge without touching sibling grants on the same
// resource. The row stays until the sweep removes the vertex.
func (r *EdgeRepository) Deactivate(ctx context.Context, kind models.EdgeKind, fromID string, toID string) error {
	const query = `UPDATE edges SET active = FALSE WHERE kind = $1 AND from_id = $2 AND to_id = $3`
	_, err := r.pool.Exec(ctx, query, kind, fromID, toID)
	return err
}

func (r *EdgeRepository) ListFrom(ctx context.Context, kind models.EdgeKind, fromID string) ([]models.Edge, error) {
	const query = `
		SELECT ` + edgeColumns + `
		FROM edges
		WHERE kind = $1 AND from_id = $2
		ORDER BY order_index, granted_at
	`
	return r.list(ctx, query, kind, fromID)
}

func (r *EdgeRepository) ListTo(ctx context.Context, kind models.EdgeKind, toID string) ([]models.Edge, error) {
	const query = `
		SELECT ` + edgeColumns + `
		FROM edges
		WHERE kind = $1 AND to_id = $2
		ORDER BY granted_at
	`
	return r.list(ctx, query, kind, toID)
}

// NextOrderIndex returns the next monotonic position for a photo inside a
// collection.
func (r *EdgeRepository) NextOrderIndex(ctx context.Context, collectionID string) (int, error) {
	const query = `
		SELECT COALESCE(MAX(order_index), 0) + 1
		FROM edges
		WHERE kind = 'collection_photo' AND from_id = $1
	`
	var next int
	if err := r.pool.QueryRow(ctx, query, collectionID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *EdgeRepository) list(ctx context.Context, query string, args ...any) ([]models.Edge, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
