package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/media"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-access-secret",
			JWTAccessTTL:    15 * time.Minute,
			SessionTTL:      168 * time.Hour,
			EncryptionKey:   "test-encryption-key",
		},
		Lifecycle: config.LifecycleConfig{
			GraceWindow:      168 * time.Hour,
			AutoDeleteWindow: 720 * time.Hour,
			GuestTTL:         72 * time.Hour,
			SweepBatchSize:   200,
		},
		Storage: config.StorageConfig{
			BucketOriginals:  "originals",
			BucketThumbnails: "thumbnails",
		},
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// memPrincipals is a map-backed PrincipalStore.
type memPrincipals struct {
	mu    sync.Mutex
	rows  map[string]models.Principal
	edges *memEdges
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{rows: map[string]models.Principal{}}
}

func (m *memPrincipals) Create(ctx context.Context, p models.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.rows[p.ID] = p
	return nil
}

func (m *memPrincipals) GetByID(ctx context.Context, id string) (models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return models.Principal{}, repository.ErrPrincipalNotFound
	}
	return p, nil
}

func (m *memPrincipals) FindByEmailDigest(ctx context.Context, role models.Role, digest []byte) (models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.Role == role && bytes.Equal(p.EmailDigest, digest) {
			return p, nil
		}
	}
	return models.Principal{}, repository.ErrPrincipalNotFound
}

func (m *memPrincipals) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.update(id, func(p *models.Principal) { p.LastLoginAt = &at })
}

func (m *memPrincipals) SetActive(ctx context.Context, id string, active bool) error {
	return m.update(id, func(p *models.Principal) { p.Active = active })
}

func (m *memPrincipals) SetExpiresAt(ctx context.Context, id string, at *time.Time) error {
	return m.update(id, func(p *models.Principal) { p.ExpiresAt = at })
}

func (m *memPrincipals) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	return m.update(id, func(p *models.Principal) {
		p.Active = active
		p.Deletion = d
	})
}

func (m *memPrincipals) ListByParent(ctx context.Context, parentID string, role models.Role) ([]models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Principal
	for _, p := range m.rows {
		if p.Role == role && p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrincipals) ListPurgeDue(ctx context.Context, role models.Role, now time.Time, limit int) ([]models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Principal
	for _, p := range m.rows {
		if p.Role == role && p.Deletion.PurgeDue(now) {
			out = append(out, p)
		}
	}
	return clip(out, limit), nil
}

func (m *memPrincipals) ListExpiredGuests(ctx context.Context, now time.Time, limit int) ([]models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Principal
	for _, p := range m.rows {
		if p.Role == models.RoleGuest && p.Active && p.Expired(now) {
			out = append(out, p)
		}
	}
	return clip(out, limit), nil
}

func (m *memPrincipals) Purge(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.rows, id)
	m.mu.Unlock()
	// The real purge transaction drops incident edges in the same tx.
	if m.edges != nil {
		m.edges.removeIncident(id)
	}
	return nil
}

func (m *memPrincipals) update(id string, fn func(*models.Principal)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repository.ErrPrincipalNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	m.rows[id] = p
	return nil
}

// memSessions keys sessions by the string form of their digest.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]models.Session{}}
}

func (m *memSessions) Create(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[string(session.SecretDigest)] = session
	return nil
}

func (m *memSessions) GetByDigest(ctx context.Context, digest []byte) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.rows[string(digest)]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (m *memSessions) DeleteByDigest(ctx context.Context, digest []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, string(digest))
	return nil
}

func (m *memSessions) DeleteByPrincipal(ctx context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, session := range m.rows {
		if session.PrincipalID == principalID {
			delete(m.rows, key)
		}
	}
	return nil
}

func (m *memSessions) Rotate(ctx context.Context, oldDigest []byte, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, string(oldDigest))
	m.rows[string(session.SecretDigest)] = session
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for key, session := range m.rows {
		if session.Expired(now) {
			delete(m.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memCollections struct {
	mu    sync.Mutex
	rows  map[string]models.Collection
	edges *memEdges
}

func newMemCollections() *memCollections {
	return &memCollections{rows: map[string]models.Collection{}}
}

func (m *memCollections) Create(ctx context.Context, c models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.rows[c.ID] = c
	return nil
}

func (m *memCollections) GetByID(ctx context.Context, id string) (models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return models.Collection{}, repository.ErrCollectionNotFound
	}
	return c, nil
}

func (m *memCollections) ListByOwner(ctx context.Context, ownerID string) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Collection
	for _, c := range m.rows {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCollections) Rename(ctx context.Context, id string, title string) error {
	return m.update(id, func(c *models.Collection) { c.Title = title })
}

func (m *memCollections) ArmAutoDelete(ctx context.Context, id string, at time.Time) error {
	return m.update(id, func(c *models.Collection) {
		if c.AutoDeleteAt == nil {
			c.AutoDeleteAt = &at
		}
	})
}

func (m *memCollections) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	return m.update(id, func(c *models.Collection) {
		c.Active = active
		c.Deletion = d
	})
}

func (m *memCollections) ListAutoExpired(ctx context.Context, now time.Time, limit int) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Collection
	for _, c := range m.rows {
		if !c.Deletion.Pending() && models.AutoExpiryDue(c.AutoDeleteAt, now) {
			out = append(out, c)
		}
	}
	return clip(out, limit), nil
}

func (m *memCollections) ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Collection
	for _, c := range m.rows {
		if c.Deletion.PurgeDue(now) {
			out = append(out, c)
		}
	}
	return clip(out, limit), nil
}

func (m *memCollections) Purge(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.rows, id)
	m.mu.Unlock()
	if m.edges != nil {
		m.edges.removeIncident(id)
	}
	return nil
}

func (m *memCollections) update(id string, fn func(*models.Collection)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return repository.ErrCollectionNotFound
	}
	fn(&c)
	c.UpdatedAt = time.Now().UTC()
	m.rows[id] = c
	return nil
}

type memPhotos struct {
	mu    sync.Mutex
	rows  map[string]models.Photo
	edges *memEdges
}

func newMemPhotos() *memPhotos {
	return &memPhotos{rows: map[string]models.Photo{}}
}

func (m *memPhotos) Create(ctx context.Context, p models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.rows[p.ID] = p
	return nil
}

func (m *memPhotos) GetByID(ctx context.Context, id string) (models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return models.Photo{}, repository.ErrPhotoNotFound
	}
	return p, nil
}

func (m *memPhotos) GetByShareToken(ctx context.Context, shareToken string) (models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ShareToken == shareToken {
			return p, nil
		}
	}
	return models.Photo{}, repository.ErrPhotoNotFound
}

func (m *memPhotos) ListByOwner(ctx context.Context, ownerID string) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Photo
	for _, p := range m.rows {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPhotos) ListByIDs(ctx context.Context, ids []string) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Photo
	for _, id := range ids {
		if p, ok := m.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPhotos) Retag(ctx context.Context, id string, tags []string) error {
	return m.update(id, func(p *models.Photo) { p.Tags = tags })
}

func (m *memPhotos) SetThumbnailKey(ctx context.Context, id string, key string) error {
	return m.update(id, func(p *models.Photo) { p.ThumbnailKey = key })
}

func (m *memPhotos) UpdateDeletion(ctx context.Context, id string, active bool, d models.Deletion) error {
	return m.update(id, func(p *models.Photo) {
		p.Active = active
		p.Deletion = d
	})
}

func (m *memPhotos) ListPurgeDue(ctx context.Context, now time.Time, limit int) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Photo
	for _, p := range m.rows {
		if p.Deletion.PurgeDue(now) {
			out = append(out, p)
		}
	}
	return clip(out, limit), nil
}

func (m *memPhotos) Purge(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.rows, id)
	m.mu.Unlock()
	if m.edges != nil {
		m.edges.removeIncident(id)
	}
	return nil
}

func (m *memPhotos) update(id string, fn func(*models.Photo)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repository.ErrPhotoNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	m.rows[id] = p
	return nil
}

// memEdges keys edges on (kind, from, to), matching the unique constraint the
// real table enforces.
type memEdges struct {
	mu   sync.Mutex
	rows map[[3]string]models.Edge
}

func newMemEdges() *memEdges {
	return &memEdges{rows: map[[3]string]models.Edge{}}
}

func edgeKey(kind models.EdgeKind, fromID, toID string) [3]string {
	return [3]string{string(kind), fromID, toID}
}

func (m *memEdges) Upsert(ctx context.Context, e models.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := edgeKey(e.Kind, e.FromID, e.ToID)
	if existing, ok := m.rows[key]; ok {
		existing.Active = e.Active
		existing.GrantedAt = e.GrantedAt
		existing.ExpiresAt = e.ExpiresAt
		existing.OrderIndex = e.OrderIndex
		m.rows[key] = existing
		return nil
	}
	m.rows[key] = e
	return nil
}

func (m *memEdges) Get(ctx context.Context, kind models.EdgeKind, fromID string, toID string) (models.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[edgeKey(kind, fromID, toID)]
	if !ok {
		return models.Edge{}, repository.ErrEdgeNotFound
	}
	return e, nil
}

func (m *memEdges) Deactivate(ctx context.Context, kind models.EdgeKind, fromID string, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := edgeKey(kind, fromID, toID)
	e, ok := m.rows[key]
	if !ok {
		return nil
	}
	e.Active = false
	m.rows[key] = e
	return nil
}

func (m *memEdges) ListFrom(ctx context.Context, kind models.EdgeKind, fromID string) ([]models.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Edge
	for _, e := range m.rows {
		if e.Kind == kind && e.FromID == fromID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memEdges) ListTo(ctx context.Context, kind models.EdgeKind, toID string) ([]models.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Edge
	for _, e := range m.rows {
		if e.Kind == kind && e.ToID == toID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEdges) NextOrderIndex(ctx context.Context, collectionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, e := range m.rows {
		if e.Kind == models.EdgeCollectionPhoto && e.FromID == collectionID && e.OrderIndex > max {
			max = e.OrderIndex
		}
	}
	return max + 1, nil
}

// removeIncident mimics the FK cleanup the real purge transactions perform.
func (m *memEdges) removeIncident(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.rows {
		if e.FromID == id || e.ToID == id {
			delete(m.rows, key)
		}
	}
}

// incidentCount reports how many edge rows still reference the vertex.
func (m *memEdges) incidentCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.FromID == id || e.ToID == id {
			n++
		}
	}
	return n
}

// memBinaries records removals so tests can assert the purge reached the
// object store.
type memBinaries struct {
	mu      sync.Mutex
	removed [][2]string
}

func (m *memBinaries) Remove(ctx context.Context, bucket string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, [2]string{bucket, key})
	return nil
}

func (m *memBinaries) removedKeys() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.removed...)
}

// fakeProcessor satisfies media.Processor without touching minio or redis.
type fakeProcessor struct{}

func (fakeProcessor) Process(ctx context.Context, photoID string, data []byte, mimeHint string) (media.Processed, error) {
	return media.Processed{
		Bucket:       "originals",
		ObjectKey:    "2026/01/01/" + photoID + ".jpg",
		ThumbnailKey: "thumb/2026/01/01/" + photoID + ".jpg",
		Format:       "jpg",
		MIME:         "image/jpeg",
		Width:        800,
		Height:       600,
		SizeBytes:    int64(len(data)),
	}, nil
}

func clip[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
