package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/events"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/ids"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/notify"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/security"
)

// env wires every service against the in-memory stores, mirroring the
// production constructor graph in cmd/api.
type env struct {
	principals  *memPrincipals
	sessions    *memSessions
	collections *memCollections
	photos      *memPhotos
	edges       *memEdges
	binaries    *memBinaries

	sessionSvc   *SessionService
	authSvc      *AuthService
	accessSvc    *AccessService
	catalogSvc   *CatalogService
	lifecycleSvc *LifecycleService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := testConfig()
	logger := testLogger()

	e := &env{
		principals:  newMemPrincipals(),
		sessions:    newMemSessions(),
		collections: newMemCollections(),
		photos:      newMemPhotos(),
		edges:       newMemEdges(),
		binaries:    &memBinaries{},
	}
	// The pgx purge transactions delete incident edges alongside the vertex;
	// the fakes reproduce that coupling.
	e.principals.edges = e.edges
	e.collections.edges = e.edges
	e.photos.edges = e.edges

	encryptor, err := security.NewEncryptor(cfg.Security.EncryptionKey)
	require.NoError(t, err)

	e.sessionSvc = NewSessionService(e.sessions, e.principals, cfg, logger)
	e.authSvc = NewAuthService(e.principals, e.sessionSvc, encryptor, cfg, logger)
	e.accessSvc = NewAccessService(e.principals, e.photos, e.collections, e.edges, e.authSvc, notify.NewNoop(), events.NewNoop(), cfg, logger)
	e.catalogSvc = NewCatalogService(e.photos, e.collections, e.edges, fakeProcessor{}, events.NewNoop(), cfg, logger)
	e.lifecycleSvc = NewLifecycleService(e.principals, e.photos, e.collections, e.edges, e.sessions, e.binaries, events.NewNoop(), cfg, logger)

	return e
}

func (e *env) addPrincipal(t *testing.T, role models.Role, email string, password string, parentID *string, expiresAt *time.Time) models.Principal {
	t.Helper()

	credential := []byte(nil)
	if password != "" {
		hashed, err := security.HashPassword(password)
		require.NoError(t, err)
		credential = hashed
	}

	p := models.Principal{
		ID:               ids.New(),
		Role:             role,
		EmailDigest:      security.HashLookupValue(email),
		DisplayName:      email,
		CredentialDigest: credential,
		Active:           true,
		ParentID:         parentID,
		ExpiresAt:        expiresAt,
	}
	require.NoError(t, e.principals.Create(context.Background(), p))
	return p
}

func (e *env) addPhotographer(t *testing.T, email string) models.Principal {
	return e.addPrincipal(t, models.RolePhotographer, email, "", nil, nil)
}

func (e *env) addClient(t *testing.T, parent models.Principal, email string) models.Principal {
	return e.addPrincipal(t, models.RoleClient, email, "", &parent.ID, nil)
}

func (e *env) addGuest(t *testing.T, parent models.Principal, email string, expiresAt time.Time) models.Principal {
	return e.addPrincipal(t, models.RoleGuest, email, "", &parent.ID, &expiresAt)
}

func (e *env) addCollection(t *testing.T, owner models.Principal, title string) models.Collection {
	t.Helper()
	c := models.Collection{
		ID:      ids.New(),
		OwnerID: owner.ID,
		Title:   title,
		Active:  true,
	}
	require.NoError(t, e.collections.Create(context.Background(), c))
	return c
}

func (e *env) addPhoto(t *testing.T, owner models.Principal) models.Photo {
	t.Helper()
	token, err := ids.NewShareToken()
	require.NoError(t, err)
	p := models.Photo{
		ID:         ids.New(),
		OwnerID:    owner.ID,
		ShareToken: token,
		Bucket:     "originals",
		ObjectKey:  "k/" + token + ".jpg",
		Format:     "jpg",
		Active:     true,
	}
	require.NoError(t, e.photos.Create(context.Background(), p))
	return p
}

func (e *env) linkPhoto(t *testing.T, collection models.Collection, photo models.Photo, orderIndex int) {
	t.Helper()
	require.NoError(t, e.edges.Upsert(context.Background(), models.Edge{
		ID:         ids.New(),
		Kind:       models.EdgeCollectionPhoto,
		FromID:     collection.ID,
		ToID:       photo.ID,
		Active:     true,
		GrantedAt:  time.Now().UTC(),
		OrderIndex: orderIndex,
	}))
}

func (e *env) grant(t *testing.T, kind models.EdgeKind, fromID, toID string, expiresAt *time.Time) {
	t.Helper()
	require.NoError(t, e.edges.Upsert(context.Background(), models.Edge{
		ID:        ids.New(),
		Kind:      kind,
		FromID:    fromID,
		ToID:      toID,
		Active:    true,
		GrantedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}))
}
