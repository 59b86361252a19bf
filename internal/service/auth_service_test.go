package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

func TestLoginHappyPath(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addPrincipal(t, models.RolePhotographer, "photo@example.com", "s3cret", nil, nil)

	result, err := e.authSvc.Login(ctx, LoginInput{
		Email:    "Photo@Example.com ",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.SessionSecret)
	assert.Equal(t, models.RolePhotographer, result.Principal.Role)
	assert.Nil(t, result.Principal.CredentialDigest, "credential digest never leaves the service")
	assert.NotNil(t, result.Principal.LastLoginAt)
}

func TestLoginProbeOrderPrefersAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Same email in two role partitions; the probe order decides.
	e.addPrincipal(t, models.RoleAdmin, "dual@example.com", "admin-pw", nil, nil)
	e.addPrincipal(t, models.RolePhotographer, "dual@example.com", "photo-pw", nil, nil)

	result, err := e.authSvc.Login(ctx, LoginInput{Email: "dual@example.com", Password: "admin-pw"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.Principal.Role)

	// The photographer's password fails against the admin row; there is no
	// second probe after a match.
	_, err = e.authSvc.Login(ctx, LoginInput{Email: "dual@example.com", Password: "photo-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// An explicit role claim narrows the probe to that partition.
	result, err = e.authSvc.Login(ctx, LoginInput{
		Role:     models.RolePhotographer,
		Email:    "dual@example.com",
		Password: "photo-pw",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePhotographer, result.Principal.Role)
}

func TestLoginGuestsNeverProbed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	client := e.addClient(t, owner, "client@example.com")
	expiresAt := time.Now().UTC().Add(time.Hour)
	e.addPrincipal(t, models.RoleGuest, "guest@example.com", "guest-pw", &client.ID, &expiresAt)

	_, err := e.authSvc.Login(ctx, LoginInput{Email: "guest@example.com", Password: "guest-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "guest partition is outside the probe order")

	result, err := e.authSvc.Login(ctx, LoginInput{
		Role:     models.RoleGuest,
		Email:    "guest@example.com",
		Password: "guest-pw",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, result.Principal.Role)
}

func TestLoginDisabledAndExpiredAccounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	disabled := e.addPrincipal(t, models.RolePhotographer, "disabled@example.com", "pw", nil, nil)
	require.NoError(t, e.principals.SetActive(ctx, disabled.ID, false))

	_, err := e.authSvc.Login(ctx, LoginInput{Email: "disabled@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// Wrong password on a disabled account still reads as bad credentials;
	// the state check comes after verification.
	_, err = e.authSvc.Login(ctx, LoginInput{Email: "disabled@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	owner := e.addPhotographer(t, "owner@example.com")
	client := e.addClient(t, owner, "client@example.com")
	past := time.Now().UTC().Add(-time.Minute)
	e.addPrincipal(t, models.RoleGuest, "late@example.com", "pw", &client.ID, &past)

	_, err = e.authSvc.Login(ctx, LoginInput{
		Role:     models.RoleGuest,
		Email:    "late@example.com",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrGuestExpired)
}

func TestCreatePrincipalHierarchy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.addPrincipal(t, models.RoleAdmin, "admin@example.com", "", nil, nil)
	photographer, err := e.authSvc.CreatePhotographer(ctx, admin, CreatePrincipalInput{
		Email:       "new-photo@example.com",
		Password:    "pw",
		DisplayName: "New Photographer",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePhotographer, photographer.Role)
	require.NotNil(t, photographer.ParentID)
	assert.Equal(t, admin.ID, *photographer.ParentID)

	// Only admins mint photographers, only photographers mint clients.
	_, err = e.authSvc.CreatePhotographer(ctx, photographer, CreatePrincipalInput{Email: "x@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	client, err := e.authSvc.CreateClient(ctx, photographer, CreatePrincipalInput{
		Email:    "client@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, client.Role)

	_, err = e.authSvc.CreateClient(ctx, client, CreatePrincipalInput{Email: "y@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Same email in the same partition conflicts; in another partition it is
	// fine.
	_, err = e.authSvc.CreateClient(ctx, photographer, CreatePrincipalInput{Email: "client@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.authSvc.CreatePhotographer(ctx, admin, CreatePrincipalInput{Email: "client@example.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestCreateGuestRequiresRotation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	client := e.addClient(t, owner, "client@example.com")

	expiresAt := time.Now().UTC().Add(72 * time.Hour)
	guest, err := e.authSvc.CreateGuest(ctx, client.ID, "guest@example.com", expiresAt)
	require.NoError(t, err)
	assert.True(t, guest.MustRotateCredential)
	require.NotNil(t, guest.ExpiresAt)
	assert.WithinDuration(t, expiresAt, *guest.ExpiresAt, time.Second)
}
