package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

var ErrPrincipalNotFound = errors.New("principal not found")

const principalColumns = `
	id, role, email_ciphertext, email_digest, display_name, credential_digest,
	active, must_rotate_credential, parent_id, expires_at, last_login_at,
	deleted_at, scheduled_purge_at, deletion_reason, deletion_origin,
	created_at, updated_at
`

type PrincipalRepository struct {
	pool *pgxpool.Pool
}

func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{pool: pool}
}

func scanPrincipal(row pgx.Row) (models.Principal, error) {
	var p models.Principal
	if err := row.Scan(
		&p.ID,
		&p.Role,
		&p.EmailCiphertext,
		&p.EmailDigest,
		&p.DisplayName,
		&p.CredentialDigest,
		&p.Active,
		&p.MustRotateCredential,
		&p.ParentID,
		&p.ExpiresAt,
		&p.LastLoginAt,
		&p.Deletion.DeletedAt,
		&p.Deletion.ScheduledPurgeAt,
		&p.Deletion.Reason,
		&p.Deletion.Origin,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Principal{}, ErrPrincipalNotFound
		}
		return models.Principal{}, err
	}
	return p, nil
}

func (r *PrincipalRepository) Create(ctx context.Context, p models.Principal) error {
	const query = `
		INSERT INTO principals (
			id, role, email_ciphertext, email_digest, display_name, credential_digest,
			active, must_rotate_credential, parent_id, expires_at,
			deletion_reason, deletion_origin, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '', '', NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Role,
		p.EmailCiphertext,
		p.EmailDigest,
		p.DisplayName,
		p.CredentialDigest,
		p.Active,
		p.MustRotateCredential,
		p.ParentID,
		p.ExpiresAt,
	)
	return err
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (models.Principal, error) {
	const query = `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`
	return scanPrincipal(r.pool.QueryRow(ctx, query, id))
}

// FindByEmailDigest looks up a candidate scoped to the claimed role. Role is
// part of the key: an email registered as a client is invisible to a
// photographer lookup.
func (r *PrincipalRepository) FindByEmailDigest(ctx context.Context, role models.Role, digest []byte) (models.Principal, error) {
	const query = `SELECT ` + principalColumns + ` FROM principals WHERE role = $1 AND email_digest = $2`
	return scanPrincipal(r.pool.QueryRow(ctx, query, role, digest))
}

// UpdateLastLogin is advisory telemetry; callers log failures and move on.
func (r *PrincipalRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE principals SET last_login_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PrincipalRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE principals SET active = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalRepository) SetExpiresAt(ctx context.Context, id string, at *time.Time) error {
	const query = `UPDATE principals SET expires_at = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalRepository) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	const query = `
		UPDATE principals
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
		return ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalRepository) ListByParent(ctx context.Context, parentID string, role models.Role) ([]models.Principal, error) {
	const query = `SELECT ` + principalColumns + ` FROM principals WHERE parent_id = $1 AND role = $2`
	return r.list(ctx, query, parentID, role)
}

// ListPurgeDue returns principals of one role whose grace window elapsed.
func (r *PrincipalRepository) ListPurgeDue(ctx context.Context, role models.Role, now time.Time, limit int) ([]models.Principal, error) {
	const query = `
		SELECT ` + principalColumns + `
		FROM principals
		WHERE role = $1 AND scheduled_purge_at IS NOT NULL AND scheduled_purge_at <= $2
		ORDER BY scheduled_purge_at
		LIMIT $3
	`
	return r.list(ctx, query, role, now, limit)
}

// ListExpiredGuests returns guests past their usability window that are
// still flagged active. Expiry deactivates, it does not schedule a purge.
func (r *PrincipalRepository) ListExpiredGuests(ctx context.Context, now time.Time, limit int) ([]models.Principal, error) {
	const query = `
		SELECT ` + principalColumns + `
		FROM principals
		WHERE role = 'guest' AND active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

// Purge irreversibly removes the vertex and every incident edge in one
// transaction. Purging an id that is already gone is a no-op.
func (r *PrincipalRepository) Purge(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE from_id = $1 OR to_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE principal_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id)
		return err
	})
}

func (r *PrincipalRepository) list(ctx context.Context, query string, args ...any) ([]models.Principal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var principals []models.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}
