package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/ids"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/security"
)

// ClientMeta travels with session issuance for audit purposes only.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// TokenPair is what a successful login hands back: a short-lived signed
// access token and a long-lived opaque session secret. The two are
// independent random values stored in independent channels; neither is
// derivable from the other.
type TokenPair struct {
	AccessToken   string
	SessionSecret string
}

// SessionService is the only component that mints or revokes sessions.
type SessionService struct {
	sessions   SessionStore
	principals PrincipalStore
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewSessionService(sessions SessionStore, principals PrincipalStore, cfg *config.AppConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions:   sessions,
		principals: principals,
		cfg:        cfg,
		log:        log,
	}
}

func (s *SessionService) Issue(ctx context.Context, principal models.Principal, meta ClientMeta) (TokenPair, error) {
	secret, err := ids.NewSessionSecret()
	if err != nil {
		return TokenPair{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		principal.ID,
		string(principal.Role),
		principal.DisplayName,
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		SecretDigest: security.HashSessionSecret(secret),
		PrincipalID:  principal.ID,
		Role:         principal.Role,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.cfg.Security.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, storageError("create session", err)
	}

	return TokenPair{AccessToken: accessToken, SessionSecret: secret}, nil
}

// Refresh exchanges a stored session for a fresh access token. Presence of
// an unexpired row is definitionally validity; anything else fails closed.
// Denormalized principal fields are re-read from the store, never trusted
// from the original token.
func (s *SessionService) Refresh(ctx context.Context, sessionSecret string) (string, error) {
	digest := security.HashSessionSecret(sessionSecret)
	session, err := s.sessions.GetByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrSessionInvalid
		}
		return "", storageError("load session", err)
	}

	now := time.Now().UTC()
	if session.Expired(now) {
		if err := s.sessions.DeleteByDigest(ctx, digest); err != nil {
			s.log.Warn().Err(err).Msg("delete expired session failed")
		}
		return "", ErrSessionInvalid
	}

	principal, err := s.principals.GetByID(ctx, session.PrincipalID)
	if err != nil {
		return "", ErrSessionInvalid
	}
	if !principal.Active || principal.Expired(now) {
		return "", ErrSessionInvalid
	}

	return security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		principal.ID,
		string(principal.Role),
		principal.DisplayName,
		s.cfg.Security.JWTAccessTTL,
	)
}

// Rotate replaces a long-lived session reference to bound the blast radius
// of a stolen one. The delete/insert pair is a single transaction in the
// store; a missing old row is fine.
func (s *SessionService) Rotate(ctx context.Context, oldSecret string, principal models.Principal, meta ClientMeta) (TokenPair, error) {
	secret, err := ids.NewSessionSecret()
	if err != nil {
		return TokenPair{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		principal.ID,
		string(principal.Role),
		principal.DisplayName,
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		SecretDigest: security.HashSessionSecret(secret),
		PrincipalID:  principal.ID,
		Role:         principal.Role,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.cfg.Security.SessionTTL),
	}
	if err := s.sessions.Rotate(ctx, security.HashSessionSecret(oldSecret), session); err != nil {
		return TokenPair{}, storageError("rotate session", err)
	}

	return TokenPair{AccessToken: accessToken, SessionSecret: secret}, nil
}

// Revoke is fire-and-forget; logout must not be blockable by storage
// hiccups.
func (s *SessionService) Revoke(ctx context.Context, sessionSecret string) {
	if err := s.sessions.DeleteByDigest(ctx, security.HashSessionSecret(sessionSecret)); err != nil {
		s.log.Warn().Err(err).Msg("revoke session failed")
	}
}

func (s *SessionService) RevokeAll(ctx context.Context, principalID string) {
	if err := s.sessions.DeleteByPrincipal(ctx, principalID); err != nil {
		s.log.Warn().Err(err).Str("principal_id", principalID).Msg("revoke sessions failed")
	}
}

// Authenticate resolves a bearer access token to a live principal. Used by
// the transport middleware and the authorize entry point.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	claims, err := security.ParseAccessToken(accessToken, s.cfg.Security.JWTAccessSecret)
	if err != nil {
		return models.Principal{}, ErrSessionInvalid
	}

	principal, err := s.principals.GetByID(ctx, claims.PrincipalID)
	if err != nil {
		return models.Principal{}, ErrSessionInvalid
	}

	now := time.Now().UTC()
	if !principal.Active || principal.Expired(now) {
		return models.Principal{}, ErrSessionInvalid
	}

	principal.CredentialDigest = nil
	return principal, nil
}
