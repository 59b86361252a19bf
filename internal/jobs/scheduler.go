package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
)

// Scheduler owns the periodic lifecycle sweep. The sweep itself runs
// in-process against the same service the admin endpoint triggers; the
// cron layer only supplies cadence. A redis SetNX lease keeps overlapping
// replicas from sweeping concurrently, though the sweep tolerates overlap
// anyway.
type Scheduler struct {
	cron      *cron.Cron
	lifecycle *service.LifecycleService
	queue     *redis.Client
	cfg       *config.AppConfig
	log       zerolog.Logger
}

const sweepLeaseKey = "gallery:sweep:lease"

func NewScheduler(lifecycle *service.LifecycleService, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		lifecycle: lifecycle,
		queue:     queue,
		cfg:       cfg,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Lifecycle.SweepCron, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to drain, bounded
// so shutdown cannot hang on a long pass.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out waiting for running jobs")
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !s.acquireLease(ctx) {
		s.log.Debug().Msg("sweep lease held elsewhere, skipping")
		return
	}
	defer s.releaseLease(ctx)

	start := time.Now()
	report := s.lifecycle.Sweep(ctx, time.Now().UTC())
	s.log.Info().
		Int("collections_auto_marked", report.CollectionsAutoMarked).
		Int("guests_deactivated", report.GuestsDeactivated).
		Int("photographers_purged", report.PhotographersPurged).
		Int("clients_purged", report.ClientsPurged).
		Int("guests_purged", report.GuestsPurged).
		Int("collections_purged", report.CollectionsPurged).
		Int("photos_purged", report.PhotosPurged).
		Int64("sessions_deleted", report.SessionsDeleted).
		Dur("elapsed", time.Since(start)).
		Msg("lifecycle sweep completed")
}

func (s *Scheduler) acquireLease(ctx context.Context) bool {
	if s.queue == nil {
		return true
	}
	ok, err := s.queue.SetNX(ctx, sweepLeaseKey, "1", 10*time.Minute).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("sweep lease acquire failed, proceeding anyway")
		return true
	}
	return ok
}

func (s *Scheduler) releaseLease(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Del(ctx, sweepLeaseKey).Err(); err != nil {
		s.log.Warn().Err(err).Msg("sweep lease release failed")
	}
}
