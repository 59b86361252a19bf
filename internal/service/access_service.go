package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/events"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/ids"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/notify"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpManage Operation = "manage"
)

// AccessService answers "can principal P perform O on resource R" by edge
// traversal and owns the grant/revoke mutators.
type AccessService struct {
	principals  PrincipalStore
	photos      PhotoStore
	collections CollectionStore
	edges       EdgeStore
	auth        *AuthService
	notifier    notify.Notifier
	broadcaster events.Broadcaster
	cfg         *config.AppConfig
	log         zerolog.Logger

	// guestLocks serializes photo-set replacement per guest so a revoke
	// from one re-share can't interleave with a grant from another.
	guestLocks sync.Map
}

func NewAccessService(
	principals PrincipalStore,
	photos PhotoStore,
	collections CollectionStore,
	edges EdgeStore,
	auth *AuthService,
	notifier notify.Notifier,
	broadcaster events.Broadcaster,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		principals:  principals,
		photos:      photos,
		collections: collections,
		edges:       edges,
		auth:        auth,
		notifier:    notifier,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
	}
}

type resource struct {
	id      string
	ownerID string
	active  bool
	pending bool
	isPhoto bool
}

func (s *AccessService) resolveResource(ctx context.Context, resourceID string) (resource, error) {
	photo, err := s.photos.GetByID(ctx, resourceID)
	if err == nil {
		return resource{
			id:      photo.ID,
			ownerID: photo.OwnerID,
			active:  photo.Active,
			pending: photo.Deletion.Pending(),
			isPhoto: true,
		}, nil
	}
	if !errors.Is(err, repository.ErrPhotoNotFound) {
		return resource{}, storageError("load photo", err)
	}

	collection, err := s.collections.GetByID(ctx, resourceID)
	if err == nil {
		return resource{
			id:      collection.ID,
			ownerID: collection.OwnerID,
			active:  collection.Active,
			pending: collection.Deletion.Pending(),
		}, nil
	}
	if !errors.Is(err, repository.ErrCollectionNotFound) {
		return resource{}, storageError("load collection", err)
	}
	return resource{}, ErrResourceNotFound
}

// CanAccess resolves the authorization question. Ownership is the sole
// authority for photographers; clients get direct photo edges or
// collection-transitive ones; guests only ever get direct photo edges.
// Every edge consulted passes through the currency invariant.
func (s *AccessService) CanAccess(ctx context.Context, principal models.Principal, resourceID string, op Operation) (bool, error) {
	res, err := s.resolveResource(ctx, resourceID)
	if err != nil {
		return false, err
	}

	// Admin access covers management operations; destructive work still
	// goes through the lifecycle engine.
	if principal.Role == models.RoleAdmin {
		return true, nil
	}

	if principal.Role == models.RolePhotographer {
		return res.ownerID == principal.ID, nil
	}

	if !principal.Active {
		return false, nil
	}

	now := time.Now().UTC()
	if principal.Expired(now) {
		return false, nil
	}

	// Non-owners only ever read; availability is gated on resource state
	// in addition to edge existence.
	if op != OpRead {
		return false, nil
	}
	if !res.active || res.pending {
		return false, ErrResourceUnavailable
	}

	switch principal.Role {
	case models.RoleClient:
		return s.clientCanRead(ctx, principal.ID, res, now)
	case models.RoleGuest:
		if !res.isPhoto {
			return false, nil
		}
		return s.hasCurrentEdge(ctx, models.EdgePhotoAccess, res.id, principal.ID, now)
	default:
		return false, nil
	}
}

func (s *AccessService) clientCanRead(ctx context.Context, clientID string, res resource, now time.Time) (bool, error) {
	if !res.isPhoto {
		return s.hasCurrentEdge(ctx, models.EdgeCollectionAccess, res.id, clientID, now)
	}

	ok, err := s.hasCurrentEdge(ctx, models.EdgePhotoAccess, res.id, clientID, now)
	if err != nil || ok {
		return ok, err
	}

	// Transitive path: photo -> containing collection -> client.
	memberships, err := s.edges.ListTo(ctx, models.EdgeCollectionPhoto, res.id)
	if err != nil {
		return false, storageError("list collection memberships", err)
	}
	for _, membership := range memberships {
		if !membership.Current(now) {
			continue
		}
		ok, err := s.hasCurrentEdge(ctx, models.EdgeCollectionAccess, membership.FromID, clientID, now)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *AccessService) hasCurrentEdge(ctx context.Context, kind models.EdgeKind, fromID string, toID string, now time.Time) (bool, error) {
	edge, err := s.edges.Get(ctx, kind, fromID, toID)
	if err != nil {
		if errors.Is(err, repository.ErrEdgeNotFound) {
			return false, nil
		}
		return false, storageError("load edge", err)
	}
	return edge.Current(now), nil
}

// Authorize is the decision entry point the transport consumes. Denials for
// principals with no relationship to the resource read identically whether
// the resource exists or not.
func (s *AccessService) Authorize(ctx context.Context, principal models.Principal, resourceID string, op Operation) error {
	ok, err := s.CanAccess(ctx, principal, resourceID, op)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		if principal.Role == models.RoleAdmin {
			return err
		}
		if errors.Is(err, ErrResourceUnavailable) {
			// Unavailability may only be disclosed to principals that hold
			// some edge to the resource; to everyone else it reads as a
			// plain denial, the same as for a resource that never existed.
			if s.hasAnyRelationship(ctx, principal, resourceID) {
				return err
			}
		}
		return ErrAccessDenied
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

// hasAnyRelationship reports whether any edge row, current or stale, ties
// the principal to the resource, directly or through a containing
// collection.
func (s *AccessService) hasAnyRelationship(ctx context.Context, principal models.Principal, resourceID string) bool {
	for _, kind := range []models.EdgeKind{models.EdgePhotoAccess, models.EdgeCollectionAccess} {
		if _, err := s.edges.Get(ctx, kind, resourceID, principal.ID); err == nil {
			return true
		}
	}
	memberships, err := s.edges.ListTo(ctx, models.EdgeCollectionPhoto, resourceID)
	if err != nil {
		return false
	}
	for _, membership := range memberships {
		if _, err := s.edges.Get(ctx, models.EdgeCollectionAccess, membership.FromID, principal.ID); err == nil {
			return true
		}
	}
	return false
}

// AuthorizeGuestManagement gates lifecycle actions on a guest account: the
// managing client or an admin may act, nobody else. An unknown guest reads
// the same as a foreign one.
func (s *AccessService) AuthorizeGuestManagement(ctx context.Context, manager models.Principal, guestID string) error {
	if manager.Role == models.RoleAdmin {
		return nil
	}
	if manager.Role != models.RoleClient {
		return ErrAccessDenied
	}

	guest, err := s.principals.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			return ErrAccessDenied
		}
		return storageError("load guest", err)
	}
	if guest.Role != models.RoleGuest {
		return ErrAccessDenied
	}
	if guest.ParentID != nil && *guest.ParentID == manager.ID {
		return nil
	}
	// Guardianship can move after creation; the edge row is authoritative
	// when the parent pointer does not match.
	if _, err := s.edges.Get(ctx, models.EdgeClientGuests, manager.ID, guestID); err == nil {
		return nil
	}
	return ErrAccessDenied
}

// Grant adds or refreshes one permission edge. Grants are additive across
// grantees; refreshing an existing pair updates it in place rather than
// duplicating. Granting on a dead resource fails loudly.
func (s *AccessService) Grant(ctx context.Context, kind models.EdgeKind, resourceID string, granteeID string, expiresAt *time.Time) error {
	res, err := s.resolveResource(ctx, resourceID)
	if err != nil {
		return err
	}
	if !res.active || res.pending {
		return ErrResourceUnavailable
	}

	edge := models.Edge{
		ID:        ids.New(),
		Kind:      kind,
		FromID:    resourceID,
		ToID:      granteeID,
		Active:    true,
		GrantedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := s.edges.Upsert(ctx, edge); err != nil {
		return storageError("upsert edge", err)
	}
	return nil
}

// Revoke deactivates one edge; sibling grants on the same resource are
// untouched.
func (s *AccessService) Revoke(ctx context.Context, kind models.EdgeKind, resourceID string, granteeID string) error {
	if err := s.edges.Deactivate(ctx, kind, resourceID, granteeID); err != nil {
		return storageError("deactivate edge", err)
	}
	return nil
}

// ShareCollection grants a client ongoing access to a collection. Only the
// owning photographer (or an admin) may share.
func (s *AccessService) ShareCollection(ctx context.Context, sharer models.Principal, collectionID string, clientID string) error {
	collection, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionNotFound) {
			return ErrResourceNotFound
		}
		return storageError("load collection", err)
	}
	if sharer.Role != models.RoleAdmin && collection.OwnerID != sharer.ID {
		return ErrAccessDenied
	}

	client, err := s.principals.GetByID(ctx, clientID)
	if err != nil || client.Role != models.RoleClient || !client.Active {
		return ErrResourceNotFound
	}

	if err := s.Grant(ctx, models.EdgeCollectionAccess, collectionID, clientID, nil); err != nil {
		return err
	}

	s.broadcaster.Emit(ctx, "collection.shared", map[string]any{
		"collectionId": collectionID,
	}, []string{clientID})
	if !s.notifier.Send(ctx, clientID, "collection-shared", map[string]any{
		"collectionId": collectionID,
		"title":        collection.Title,
	}) {
		s.log.Warn().Str("collection_id", collectionID).Msg("share notification not delivered")
	}
	return nil
}

// ShareGuestPhotos resolves the supplied share tokens, creates or reuses
// the guest under the managing client, and replaces the guest's photo set:
// edges not in the new set are revoked before the new set is granted.
// The whole replacement is serialized per guest.
func (s *AccessService) ShareGuestPhotos(ctx context.Context, client models.Principal, guestEmail string, shareTokens []string) (models.Principal, error) {
	if client.Role != models.RoleClient {
		return models.Principal{}, ErrAccessDenied
	}
	if len(shareTokens) == 0 {
		return models.Principal{}, ErrValidation
	}

	now := time.Now().UTC()
	photoIDs := make(map[string]struct{}, len(shareTokens))
	var orderedIDs []string
	for _, token := range shareTokens {
		photo, err := s.photos.GetByShareToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrPhotoNotFound) {
				return models.Principal{}, ErrResourceNotFound
			}
			return models.Principal{}, storageError("resolve share token", err)
		}
		if !photo.Active || photo.Deletion.Pending() {
			return models.Principal{}, ErrResourceUnavailable
		}
		if _, seen := photoIDs[photo.ID]; !seen {
			photoIDs[photo.ID] = struct{}{}
			orderedIDs = append(orderedIDs, photo.ID)
		}
	}

	guest, err := s.resolveGuest(ctx, client, guestEmail, now)
	if err != nil {
		return models.Principal{}, err
	}

	unlock := s.lockGuest(guest.ID)
	defer unlock()

	// Replacement semantics: revoke stale grants first, then grant the new
	// set. Re-sharing never accumulates.
	existing, err := s.edges.ListTo(ctx, models.EdgePhotoAccess, guest.ID)
	if err != nil {
		return models.Principal{}, storageError("list guest grants", err)
	}
	for _, edge := range existing {
		if _, keep := photoIDs[edge.FromID]; keep {
			continue
		}
		if err := s.edges.Deactivate(ctx, models.EdgePhotoAccess, edge.FromID, guest.ID); err != nil {
			return models.Principal{}, storageError("revoke guest grant", err)
		}
	}

	for _, photoID := range orderedIDs {
		if err := s.Grant(ctx, models.EdgePhotoAccess, photoID, guest.ID, guest.ExpiresAt); err != nil {
			return models.Principal{}, err
		}
	}

	s.broadcaster.Emit(ctx, "guest.photos-shared", map[string]any{
		"guestId": guest.ID,
		"count":   len(orderedIDs),
	}, []string{client.ID})
	if !s.notifier.Send(ctx, guestEmail, "guest-photos-shared", map[string]any{
		"count": len(orderedIDs),
	}) {
		s.log.Warn().Str("guest_id", guest.ID).Msg("guest share notification not delivered")
	}

	guest.CredentialDigest = nil
	return guest, nil
}

func (s *AccessService) resolveGuest(ctx context.Context, client models.Principal, guestEmail string, now time.Time) (models.Principal, error) {
	expiresAt := now.Add(s.cfg.Lifecycle.GuestTTL)

	guest, err := s.auth.FindByEmail(ctx, models.RoleGuest, guestEmail)
	if errors.Is(err, ErrResourceNotFound) {
		guest, err = s.auth.CreateGuest(ctx, client.ID, guestEmail, expiresAt)
	}
	if err != nil {
		return models.Principal{}, err
	}

	// Re-sharing extends the usability window and refreshes guardianship.
	if err := s.principals.SetExpiresAt(ctx, guest.ID, &expiresAt); err != nil {
		return models.Principal{}, storageError("extend guest expiry", err)
	}
	guest.ExpiresAt = &expiresAt

	guardianship := models.Edge{
		ID:        ids.New(),
		Kind:      models.EdgeClientGuests,
		FromID:    client.ID,
		ToID:      guest.ID,
		Active:    true,
		GrantedAt: now,
	}
	if err := s.edges.Upsert(ctx, guardianship); err != nil {
		return models.Principal{}, storageError("upsert guardianship", err)
	}
	return guest, nil
}

func (s *AccessService) lockGuest(guestID string) func() {
	val, _ := s.guestLocks.LoadOrStore(guestID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
