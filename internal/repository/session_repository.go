package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (
			secret_digest, principal_id, role, ip_address, user_agent, issued_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	_, err := r.pool.Exec(ctx, query,
		session.SecretDigest,
		session.PrincipalID,
		session.Role,
		session.IPAddress,
		session.UserAgent,
		session.IssuedAt,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) GetByDigest(ctx context.Context, digest []byte) (models.Session, error) {
	const query = `
		SELECT secret_digest, principal_id, role, ip_address, user_agent, issued_at, expires_at
		FROM sessions
		WHERE secret_digest = $1
	`
	row := r.pool.QueryRow(ctx, query, digest)
	var session models.Session
	if err := row.Scan(
		&session.SecretDigest,
		&session.PrincipalID,
		&session.Role,
		&session.IPAddress,
		&session.UserAgent,
		&session.IssuedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) DeleteByDigest(ctx context.Context, digest []byte) error {
	const query = `DELETE FROM sessions WHERE secret_digest = $1`
	_, err := r.pool.Exec(ctx, query, digest)
	return err
}

func (r *SessionRepository) DeleteByPrincipal(ctx context.Context, principalID string) error {
	const query = `DELETE FROM sessions WHERE principal_id = $1`
	_, err := r.pool.Exec(ctx, query, principalID)
	return err
}

// Rotate deletes the old row and inserts the replacement in one
// transaction, so a concurrent refresh never observes a window with neither
// session present. A missing old row is not an error.
func (r *SessionRepository) Rotate(ctx context.Context, oldDigest []byte, session models.Session) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE secret_digest = $1`, oldDigest); err != nil {
			return err
		}
		const insert = `
			INSERT INTO sessions (
				secret_digest, principal_id, role, ip_address, user_agent, issued_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, insert,
			session.SecretDigest,
			session.PrincipalID,
			session.Role,
			session.IPAddress,
			session.UserAgent,
			session.IssuedAt,
			session.ExpiresAt,
		)
		return err
	})
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
