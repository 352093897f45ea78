package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/showyourproject/backend/internal/clock"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	"github.com/showyourproject/backend/internal/metrics"
	"github.com/showyourproject/backend/internal/ratelimit"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepLockKey = "scheduler:sweep"

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	FeaturedSvc featureddomain.Service
	Locker      *ratelimit.Locker `optional:"true"`
	Metrics     *metrics.Metrics  `optional:"true"`
	Config      Config            `optional:"true"`
}

// Scheduler drives the background sweeps on a ticker. Every job is
// idempotent, so overlapping runs from multiple instances are safe; the
// redis lock just avoids wasting the work.
type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	featuredSvc featureddomain.Service
	locker      *ratelimit.Locker
	metrics     *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.FeaturedSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler"),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		featuredSvc: p.FeaturedSvc,
		locker:      p.Locker,
		metrics:     p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveSweep(name, time.Since(start), err)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(parent, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable, running anyway", zap.Error(err))
		} else if !acquired {
			s.log.Debug("another instance holds the sweep lock, skipping")
			return nil
		} else {
			defer func() {
				if releaseErr := s.locker.Release(parent, sweepLockKey, token); releaseErr != nil {
					s.log.Warn("sweep lock release failed", zap.Error(releaseErr))
				}
			}()
		}
	}

	var err error
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"expire_featured_slots", s.ExpireFeaturedSlotsJob},
		{"reconcile_featured_flags", s.ReconcileFeaturedFlagsJob},
		{"stale_pending_posts", s.StalePendingPostsJob},
	}

	for _, job := range jobs {
		if !s.cfg.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) ExpireFeaturedSlotsJob(ctx context.Context) error {
	report, err := s.featuredSvc.ExpireStale(ctx)
	if err != nil {
		return err
	}
	if report.SlotsExpired > 0 {
		s.log.Info("featured sweep",
			zap.Int64("slots_expired", report.SlotsExpired),
			zap.Int64("flags_repaired", report.FlagsRepaired),
		)
	}
	return nil
}

// ReconcileFeaturedFlagsJob repairs drift in the other direction: projects
// holding an active slot whose cached flag was lost get it set back.
func (s *Scheduler) ReconcileFeaturedFlagsJob(ctx context.Context) error {
	now := s.clock.Now()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET featured = ?,
		     featured_until = (
		       SELECT MAX(expires_at) FROM featured_slots
		       WHERE featured_slots.project_id = projects.id
		         AND featured_slots.status = ? AND featured_slots.expires_at > ?
		     ),
		     updated_at = ?
		 WHERE featured = ?
		   AND id IN (
		     SELECT project_id FROM featured_slots
		     WHERE status = ? AND expires_at > ?
		   )`,
		true,
		featureddomain.SlotStatusActive, now,
		now,
		false,
		featureddomain.SlotStatusActive, now,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("restored featured flags", zap.Int64("projects", result.RowsAffected))
	}
	return nil
}

// StalePendingPostsJob finalizes social posts stuck pending, typically from
// a crash between the row insert and the dispatch. Posts never leave a
// terminal state, so this cannot race a late success update.
func (s *Scheduler) StalePendingPostsJob(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.StalePendingAfter)

	result := s.db.WithContext(ctx).Exec(
		`UPDATE social_posts
		 SET status = ?, error = ?, updated_at = ?
		 WHERE status = ? AND created_at <= ?`,
		socialdomain.PostStatusFailed,
		"dispatch never completed",
		now,
		socialdomain.PostStatusPending,
		cutoff,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("failed stale pending posts", zap.Int64("posts", result.RowsAffected))
	}
	return nil
}
