package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/events"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
)

// ReasonAutoDelete marks collections whose delivery clock ran out; nobody
// asked for the deletion, the timer did.
const ReasonAutoDelete = "auto-delete timer expired"

// LifecycleService runs the soft-delete state machine across every
// deletable entity kind. One sweep pass is the unit of correctness; cadence
// belongs to the scheduler.
type LifecycleService struct {
	principals  PrincipalStore
	photos      PhotoStore
	collections CollectionStore
	edges       EdgeStore
	sessions    SessionStore
	binaries    BinaryStore
	broadcaster events.Broadcaster
	cfg         *config.AppConfig
	log         zerolog.Logger
}

func NewLifecycleService(
	principals PrincipalStore,
	photos PhotoStore,
	collections CollectionStore,
	edges EdgeStore,
	sessions SessionStore,
	binaries BinaryStore,
	broadcaster events.Broadcaster,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		principals:  principals,
		photos:      photos,
		collections: collections,
		edges:       edges,
		sessions:    sessions,
		binaries:    binaries,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
	}
}

// MarkForDeletion moves an entity from Active to PendingDeletion. Calling
// it on an already pending entity refreshes the reason and clock instead of
// erroring. Deleting a collection marks every member photo first, tagged
// with the collection as cascade origin, so restore can tell cascade
// casualties from independently deleted photos.
func (s *LifecycleService) MarkForDeletion(ctx context.Context, kind models.EntityKind, id string, reason string) error {
	now := time.Now().UTC()
	deletion := models.MarkDeleted(now, s.cfg.Lifecycle.GraceWindow, reason, models.OriginDirect)

	switch kind {
	case models.KindPhoto:
		return s.markPhoto(ctx, id, deletion)
	case models.KindCollection:
		return s.markCollection(ctx, id, now, reason)
	case models.KindPhotographer, models.KindClient, models.KindGuest:
		if err := s.principals.UpdateDeletion(ctx, id, false, deletion); err != nil {
			if errors.Is(err, repository.ErrPrincipalNotFound) {
				return ErrResourceNotFound
			}
			return storageError("mark principal", err)
		}
		s.broadcaster.Emit(ctx, "lifecycle.marked", map[string]any{"kind": string(kind), "id": id}, nil)
		return nil
	default:
		return ErrValidation
	}
}

func (s *LifecycleService) markPhoto(ctx context.Context, id string, deletion models.Deletion) error {
	if err := s.photos.UpdateDeletion(ctx, id, false, deletion); err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return ErrResourceNotFound
		}
		return storageError("mark photo", err)
	}
	return nil
}

func (s *LifecycleService) markCollection(ctx context.Context, id string, now time.Time, reason string) error {
	collection, err := s.collections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionNotFound) {
			return ErrResourceNotFound
		}
		return storageError("load collection", err)
	}

	// Member photos are marked before the collection itself; a partial
	// cascade that dropped photos while keeping the collection alive would
	// be a correctness bug. Photos already pending keep their own reason
	// and origin.
	cascade := models.MarkDeleted(now, s.cfg.Lifecycle.GraceWindow, reason, models.CascadeOrigin(id))
	memberships, err := s.edges.ListFrom(ctx, models.EdgeCollectionPhoto, id)
	if err != nil {
		return storageError("list collection photos", err)
	}
	for _, membership := range memberships {
		photo, err := s.photos.GetByID(ctx, membership.ToID)
		if err != nil {
			if errors.Is(err, repository.ErrPhotoNotFound) {
				continue
			}
			return storageError("load photo", err)
		}
		if photo.Deletion.Pending() {
			continue
		}
		if err := s.photos.UpdateDeletion(ctx, photo.ID, false, cascade); err != nil {
			return storageError("mark photo", err)
		}
	}

	direct := models.MarkDeleted(now, s.cfg.Lifecycle.GraceWindow, reason, models.OriginDirect)
	if err := s.collections.UpdateDeletion(ctx, id, false, direct); err != nil {
		return storageError("mark collection", err)
	}

	s.broadcaster.Emit(ctx, "lifecycle.marked", map[string]any{
		"kind": string(models.KindCollection),
		"id":   id,
	}, []string{collection.OwnerID})
	return nil
}

// Restore moves a pending entity back to Active. Restoring a collection
// resurrects only the photos that entered PendingDeletion as a consequence
// of that collection's deletion; photos someone deleted independently stay
// pending. Racing a purge is tolerated: the purge wins and restore reports
// not-found.
func (s *LifecycleService) Restore(ctx context.Context, kind models.EntityKind, id string) error {
	switch kind {
	case models.KindPhoto:
		photo, err := s.photos.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrPhotoNotFound) {
				return ErrResourceNotFound
			}
			return storageError("load photo", err)
		}
		if !photo.Deletion.Pending() {
			return nil
		}
		return s.photos.UpdateDeletion(ctx, id, true, models.Restored())
	case models.KindCollection:
		return s.restoreCollection(ctx, id)
	case models.KindPhotographer, models.KindClient, models.KindGuest:
		principal, err := s.principals.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrPrincipalNotFound) {
				return ErrResourceNotFound
			}
			return storageError("load principal", err)
		}
		if !principal.Deletion.Pending() {
			return nil
		}
		return s.principals.UpdateDeletion(ctx, id, true, models.Restored())
	default:
		return ErrValidation
	}
}

func (s *LifecycleService) restoreCollection(ctx context.Context, id string) error {
	collection, err := s.collections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionNotFound) {
			return ErrResourceNotFound
		}
		return storageError("load collection", err)
	}
	if !collection.Deletion.Pending() {
		return nil
	}

	memberships, err := s.edges.ListFrom(ctx, models.EdgeCollectionPhoto, id)
	if err != nil {
		return storageError("list collection photos", err)
	}
	for _, membership := range memberships {
		photo, err := s.photos.GetByID(ctx, membership.ToID)
		if err != nil {
			continue
		}
		if !photo.Deletion.Pending() || !models.IsCascadeFrom(photo.Deletion.Origin, id) {
			continue
		}
		if err := s.photos.UpdateDeletion(ctx, photo.ID, true, models.Restored()); err != nil {
			return storageError("restore photo", err)
		}
	}

	return s.collections.UpdateDeletion(ctx, id, true, models.Restored())
}

// SweepReport summarizes one pass.
type SweepReport struct {
	CollectionsAutoMarked int
	GuestsDeactivated     int
	PhotographersPurged   int
	ClientsPurged         int
	GuestsPurged          int
	CollectionsPurged     int
	PhotosPurged          int
	SessionsDeleted       int64
}

// Sweep runs one pass of the state machine against the supplied clock.
// It is safe under overlapping invocations: purging an id that is already
// gone is a no-op, and each entity's transition is atomic in the store, so
// a pass can be stopped after any entity and resumed later. Per-entity
// failures are logged and the batch continues.
func (s *LifecycleService) Sweep(ctx context.Context, now time.Time) SweepReport {
	var report SweepReport
	limit := s.cfg.Lifecycle.SweepBatchSize

	// Auto-expiry feeds the same mark transition before any purging, so an
	// expired collection gets its full grace window.
	expired, err := s.collections.ListAutoExpired(ctx, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list auto-expired collections failed")
	}
	for _, collection := range expired {
		if err := s.MarkForDeletion(ctx, models.KindCollection, collection.ID, ReasonAutoDelete); err != nil {
			s.log.Error().Err(err).Str("collection_id", collection.ID).Msg("sweep: auto-delete mark failed")
			continue
		}
		report.CollectionsAutoMarked++
	}

	// Guest expiry revokes usability, not existence: deactivate only.
	expiredGuests, err := s.principals.ListExpiredGuests(ctx, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list expired guests failed")
	}
	for _, guest := range expiredGuests {
		if err := s.principals.SetActive(ctx, guest.ID, false); err != nil {
			s.log.Error().Err(err).Str("guest_id", guest.ID).Msg("sweep: guest deactivation failed")
			continue
		}
		report.GuestsDeactivated++
	}

	if deleted, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("sweep: delete expired sessions failed")
	} else {
		report.SessionsDeleted = deleted
	}

	// Purge pass, depth-first. Photographers go first since their cascade
	// covers everything they own.
	photographers, err := s.principals.ListPurgeDue(ctx, models.RolePhotographer, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list photographers failed")
	}
	for _, photographer := range photographers {
		s.purgePhotographer(ctx, photographer.ID, &report)
	}

	clients, err := s.principals.ListPurgeDue(ctx, models.RoleClient, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list clients failed")
	}
	for _, client := range clients {
		s.purgeClient(ctx, client.ID, &report)
	}

	guests, err := s.principals.ListPurgeDue(ctx, models.RoleGuest, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list guests failed")
	}
	for _, guest := range guests {
		s.purgeGuest(ctx, guest.ID, &report)
	}

	collections, err := s.collections.ListPurgeDue(ctx, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list collections failed")
	}
	for _, collection := range collections {
		s.purgeCollection(ctx, collection.ID, &report)
	}

	photos, err := s.photos.ListPurgeDue(ctx, now, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list photos failed")
	}
	for _, photo := range photos {
		s.purgePhoto(ctx, photo.ID, &report)
	}

	return report
}

func (s *LifecycleService) purgePhotographer(ctx context.Context, id string, report *SweepReport) {
	clients, err := s.principals.ListByParent(ctx, id, models.RoleClient)
	if err != nil {
		s.log.Error().Err(err).Str("photographer_id", id).Msg("sweep: list owned clients failed")
		return
	}
	for _, client := range clients {
		s.purgeClient(ctx, client.ID, report)
	}

	collections, err := s.collections.ListByOwner(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("photographer_id", id).Msg("sweep: list owned collections failed")
		return
	}
	for _, collection := range collections {
		s.purgeCollection(ctx, collection.ID, report)
	}

	photos, err := s.photos.ListByOwner(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("photographer_id", id).Msg("sweep: list owned photos failed")
		return
	}
	for _, photo := range photos {
		s.purgePhoto(ctx, photo.ID, report)
	}

	if err := s.principals.Purge(ctx, id); err != nil {
		s.log.Error().Err(err).Str("photographer_id", id).Msg("sweep: photographer purge failed")
		return
	}
	report.PhotographersPurged++
}

func (s *LifecycleService) purgeClient(ctx context.Context, id string, report *SweepReport) {
	guests, err := s.principals.ListByParent(ctx, id, models.RoleGuest)
	if err != nil {
		s.log.Error().Err(err).Str("client_id", id).Msg("sweep: list owned guests failed")
		return
	}
	for _, guest := range guests {
		s.purgeGuest(ctx, guest.ID, report)
	}

	if err := s.principals.Purge(ctx, id); err != nil {
		s.log.Error().Err(err).Str("client_id", id).Msg("sweep: client purge failed")
		return
	}
	report.ClientsPurged++
}

func (s *LifecycleService) purgeGuest(ctx context.Context, id string, report *SweepReport) {
	if err := s.principals.Purge(ctx, id); err != nil {
		s.log.Error().Err(err).Str("guest_id", id).Msg("sweep: guest purge failed")
		return
	}
	report.GuestsPurged++
}

func (s *LifecycleService) purgeCollection(ctx context.Context, id string, report *SweepReport) {
	// Photos first, then the collection; its purge drops the remaining
	// membership edges in the same transaction as the vertex.
	memberships, err := s.edges.ListFrom(ctx, models.EdgeCollectionPhoto, id)
	if err != nil {
		s.log.Error().Err(err).Str("collection_id", id).Msg("sweep: list collection photos failed")
		return
	}
	for _, membership := range memberships {
		s.purgePhoto(ctx, membership.ToID, report)
	}

	if err := s.collections.Purge(ctx, id); err != nil {
		s.log.Error().Err(err).Str("collection_id", id).Msg("sweep: collection purge failed")
		return
	}
	report.CollectionsPurged++
}

func (s *LifecycleService) purgePhoto(ctx context.Context, id string, report *SweepReport) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		// Already purged by an overlapping pass; nothing to do.
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return
		}
		s.log.Error().Err(err).Str("photo_id", id).Msg("sweep: load photo failed")
		return
	}

	if err := s.photos.Purge(ctx, id); err != nil {
		s.log.Error().Err(err).Str("photo_id", id).Msg("sweep: photo purge failed")
		return
	}
	report.PhotosPurged++

	// Stored bytes go best-effort after the vertex; an orphaned object is
	// retryable garbage, a dangling edge is not.
	if s.binaries != nil {
		if err := s.binaries.Remove(ctx, photo.Bucket, photo.ObjectKey); err != nil {
			s.log.Warn().Err(err).Str("photo_id", id).Msg("sweep: remove original failed")
		}
		if err := s.binaries.Remove(ctx, s.cfg.Storage.BucketThumbnails, photo.ThumbnailKey); err != nil {
			s.log.Warn().Err(err).Str("photo_id", id).Msg("sweep: remove thumbnail failed")
		}
	}
}
