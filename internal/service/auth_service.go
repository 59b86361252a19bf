package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/ids"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/security"
)

// loginProbeOrder is the closed, ordered list of role partitions the legacy
// login flow checks when the caller does not claim a role. Guests are never
// probed; they always arrive with an explicit role from a share link.
var loginProbeOrder = []models.Role{
	models.RoleAdmin,
	models.RolePhotographer,
	models.RoleClient,
}

type AuthService struct {
	principals PrincipalStore
	sessions   *SessionService
	encryptor  security.Encryptor
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewAuthService(principals PrincipalStore, sessions *SessionService, encryptor security.Encryptor, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		principals: principals,
		sessions:   sessions,
		encryptor:  encryptor,
		cfg:        cfg,
		log:        log,
	}
}

type LoginInput struct {
	Role     models.Role // optional; empty triggers the probe order
	Email    string
	Password string
	Meta     ClientMeta
}

type LoginResult struct {
	Tokens    TokenPair
	Principal models.Principal
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	digest := security.HashLookupValue(email)

	principal, err := s.lookup(ctx, input.Role, digest)
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, principal.CredentialDigest)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !principal.Active {
		return LoginResult{}, ErrAccountDisabled
	}

	// Guest expiry is checked at login time only; the active flag is left
	// untouched, the sweep handles deactivation.
	now := time.Now().UTC()
	if principal.Expired(now) {
		return LoginResult{}, ErrGuestExpired
	}

	// Verification is done; the lastLogin update is advisory telemetry and
	// must not fail the login.
	if err := s.principals.UpdateLastLogin(ctx, principal.ID, now); err != nil {
		s.log.Warn().Err(err).Str("principal_id", principal.ID).Msg("update last login failed")
	} else {
		principal.LastLoginAt = &now
	}

	tokens, err := s.sessions.Issue(ctx, principal, input.Meta)
	if err != nil {
		return LoginResult{}, err
	}

	principal.CredentialDigest = nil
	return LoginResult{Tokens: tokens, Principal: principal}, nil
}

func (s *AuthService) lookup(ctx context.Context, role models.Role, digest []byte) (models.Principal, error) {
	probe := loginProbeOrder
	if role != "" {
		probe = []models.Role{role}
	}

	for _, r := range probe {
		principal, err := s.principals.FindByEmailDigest(ctx, r, digest)
		if err == nil {
			return principal, nil
		}
		if !errors.Is(err, repository.ErrPrincipalNotFound) {
			return models.Principal{}, storageError("lookup principal", err)
		}
	}
	return models.Principal{}, ErrInvalidCredentials
}

type CreatePrincipalInput struct {
	Email       string
	Password    string
	DisplayName string
}

// CreatePhotographer is an admin operation.
func (s *AuthService) CreatePhotographer(ctx context.Context, creator models.Principal, input CreatePrincipalInput) (models.Principal, error) {
	if creator.Role != models.RoleAdmin {
		return models.Principal{}, ErrAccessDenied
	}
	return s.createPrincipal(ctx, creator.ID, models.RolePhotographer, input, nil)
}

// CreateClient is a photographer operation.
func (s *AuthService) CreateClient(ctx context.Context, creator models.Principal, input CreatePrincipalInput) (models.Principal, error) {
	if creator.Role != models.RolePhotographer {
		return models.Principal{}, ErrAccessDenied
	}
	return s.createPrincipal(ctx, creator.ID, models.RoleClient, input, nil)
}

// CreateGuest is invoked by the sharing flow on behalf of a client. Guests
// get a generated credential they are required to rotate, and a bounded
// usability window.
func (s *AuthService) CreateGuest(ctx context.Context, clientID string, email string, expiresAt time.Time) (models.Principal, error) {
	password, err := ids.NewSessionSecret()
	if err != nil {
		return models.Principal{}, err
	}
	guest, err := s.createPrincipal(ctx, clientID, models.RoleGuest, CreatePrincipalInput{
		Email:       email,
		Password:    password,
		DisplayName: email,
	}, &expiresAt)
	if err != nil {
		return models.Principal{}, err
	}
	return guest, nil
}

// FindByEmail resolves a principal within one role partition; the sharing
// flows use it to reuse existing guests and validate grantees.
func (s *AuthService) FindByEmail(ctx context.Context, role models.Role, email string) (models.Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	principal, err := s.principals.FindByEmailDigest(ctx, role, security.HashLookupValue(email))
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			return models.Principal{}, ErrResourceNotFound
		}
		return models.Principal{}, storageError("lookup principal", err)
	}
	return principal, nil
}

func (s *AuthService) createPrincipal(ctx context.Context, parentID string, role models.Role, input CreatePrincipalInput, expiresAt *time.Time) (models.Principal, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return models.Principal{}, ErrValidation
	}

	digest := security.HashLookupValue(email)
	if _, err := s.principals.FindByEmailDigest(ctx, role, digest); err == nil {
		return models.Principal{}, ErrConflict
	} else if !errors.Is(err, repository.ErrPrincipalNotFound) {
		return models.Principal{}, storageError("lookup principal", err)
	}

	credential, err := security.HashPassword(input.Password)
	if err != nil {
		return models.Principal{}, err
	}
	sealed, err := s.encryptor.Seal([]byte(email))
	if err != nil {
		return models.Principal{}, err
	}

	principal := models.Principal{
		ID:                   ids.New(),
		Role:                 role,
		EmailCiphertext:      sealed,
		EmailDigest:          digest,
		DisplayName:          input.DisplayName,
		CredentialDigest:     credential,
		Active:               true,
		MustRotateCredential: role == models.RoleGuest,
		ParentID:             &parentID,
		ExpiresAt:            expiresAt,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		return models.Principal{}, storageError("create principal", err)
	}

	created, err := s.principals.GetByID(ctx, principal.ID)
	if err != nil {
		return models.Principal{}, storageError("reload principal", err)
	}
	created.CredentialDigest = nil
	return created, nil
}
