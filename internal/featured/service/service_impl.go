package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/featured/domain"
	"github.com/showyourproject/backend/internal/metrics"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Config  config.Config
	Clock   clock.Clock
	Points  pointsdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	cfg     config.Config
	clock   clock.Clock
	points  pointsdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("featured.service"),
		genID:   p.GenID,
		cfg:     p.Config,
		clock:   p.Clock,
		points:  p.Points,
		metrics: p.Metrics,
	}
}

// Purchase runs the whole slot purchase in one transaction. The settings
// row is locked FOR UPDATE first, which serializes concurrent purchases so
// the capacity count cannot be read stale. The point debit goes through
// SpendTx inside the same transaction; if the slot insert fails, the debit
// rolls back with it.
func (s *Service) Purchase(ctx context.Context, userID, projectID string) (domain.FeaturedSlot, error) {
	uid, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil || uid == 0 {
		return domain.FeaturedSlot{}, domain.ErrInvalidID
	}
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return domain.FeaturedSlot{}, domain.ErrInvalidID
	}

	var slot domain.FeaturedSlot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.lockSettings(ctx, tx)
		if err != nil {
			return err
		}

		var project projectdomain.Project
		if err := tx.WithContext(ctx).
			Model(&projectdomain.Project{}).
			Where("id = ?", pid).
			Scan(&project).Error; err != nil {
			return err
		}
		if project.ID == 0 {
			return domain.ErrProjectNotFound
		}
		if project.Status != projectdomain.StatusApproved {
			return domain.ErrProjectNotLive
		}

		now := s.clock.Now()

		var activeForProject int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM featured_slots
			 WHERE project_id = ? AND status = ? AND expires_at > ?`,
			pid, domain.SlotStatusActive, now,
		).Scan(&activeForProject).Error; err != nil {
			return err
		}
		if activeForProject > 0 {
			return domain.ErrAlreadyFeatured
		}

		var active int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM featured_slots
			 WHERE status = ? AND expires_at > ?`,
			domain.SlotStatusActive, now,
		).Scan(&active).Error; err != nil {
			return err
		}
		if active >= int64(settings.MaxSlots) {
			return domain.ErrCapacityExceeded
		}

		if _, err := s.points.SpendTx(ctx, tx, pointsdomain.SpendRequest{
			UserID:      uid,
			Action:      pointsdomain.ActionFeaturedPurchase,
			Amount:      settings.CostPoints,
			ProjectID:   &pid,
			Description: "featured slot for " + project.Name,
		}); err != nil {
			return err
		}

		expiresAt := now.Add(time.Duration(settings.DurationDays) * 24 * time.Hour)
		slot = domain.FeaturedSlot{
			ID:          s.genID.Generate(),
			ProjectID:   pid,
			UserID:      uid,
			PointsSpent: settings.CostPoints,
			PurchasedAt: now,
			ExpiresAt:   expiresAt,
			Status:      domain.SlotStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO featured_slots (id, project_id, user_id, points_spent, purchased_at, expires_at, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			slot.ID,
			slot.ProjectID,
			slot.UserID,
			slot.PointsSpent,
			slot.PurchasedAt,
			slot.ExpiresAt,
			string(slot.Status),
			slot.CreatedAt,
			slot.UpdatedAt,
		).Error; err != nil {
			return err
		}

		// Denormalized flag on the project row; the slot table stays the
		// source of truth and the sweep repairs any drift.
		if err := tx.WithContext(ctx).Exec(
			`UPDATE projects SET featured = ?, featured_until = ?, updated_at = ? WHERE id = ?`,
			true, expiresAt, now, pid,
		).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE users SET featured_purchases = featured_purchases + 1, updated_at = ? WHERE id = ?`,
			now, uid,
		).Error
	})
	if err != nil {
		return domain.FeaturedSlot{}, err
	}

	if s.metrics != nil {
		s.metrics.FeaturedPurchases.Inc()
		s.metrics.RecordPointTransaction(
			string(pointsdomain.DirectionSpent),
			string(pointsdomain.ActionFeaturedPurchase),
			slot.PointsSpent,
		)
	}
	s.log.Info("featured slot purchased",
		zap.String("slot_id", slot.ID.String()),
		zap.String("project_id", pid.String()),
		zap.String("user_id", uid.String()),
		zap.Time("expires_at", slot.ExpiresAt),
	)
	return slot, nil
}

// ExpireStale flips every overdue active slot to expired, then clears the
// featured flag on projects that no longer hold an active slot. Both
// statements are conditional updates, so a concurrent run of the same
// sweep is harmless.
func (s *Service) ExpireStale(ctx context.Context) (domain.ExpireReport, error) {
	now := s.clock.Now()

	var report domain.ExpireReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`UPDATE featured_slots
			 SET status = ?, updated_at = ?
			 WHERE status = ? AND expires_at <= ?`,
			domain.SlotStatusExpired,
			now,
			domain.SlotStatusActive,
			now,
		)
		if result.Error != nil {
			return result.Error
		}
		report.SlotsExpired = result.RowsAffected

		result = tx.WithContext(ctx).Exec(
			`UPDATE projects
			 SET featured = ?, featured_until = NULL, updated_at = ?
			 WHERE featured = ?
			   AND id NOT IN (
			     SELECT project_id FROM featured_slots
			     WHERE status = ? AND expires_at > ?
			   )`,
			false,
			now,
			true,
			domain.SlotStatusActive,
			now,
		)
		if result.Error != nil {
			return result.Error
		}
		report.FlagsRepaired = result.RowsAffected
		return nil
	})
	if err != nil {
		return domain.ExpireReport{}, err
	}

	if report.SlotsExpired > 0 || report.FlagsRepaired > 0 {
		if s.metrics != nil {
			s.metrics.FeaturedExpired.Add(float64(report.SlotsExpired))
		}
		s.log.Info("expired stale featured slots",
			zap.Int64("slots_expired", report.SlotsExpired),
			zap.Int64("flags_repaired", report.FlagsRepaired),
		)
	}
	return report, nil
}

func (s *Service) ActiveSlots(ctx context.Context) ([]domain.FeaturedSlot, error) {
	now := s.clock.Now()
	var slots []domain.FeaturedSlot
	err := s.db.WithContext(ctx).
		Model(&domain.FeaturedSlot{}).
		Where("status = ? AND expires_at > ?", domain.SlotStatusActive, now).
		Order("expires_at asc").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *Service) IsFeatured(ctx context.Context, projectID string) (bool, error) {
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return false, domain.ErrInvalidID
	}
	var count int64
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM featured_slots
		 WHERE project_id = ? AND status = ? AND expires_at > ?`,
		pid, domain.SlotStatusActive, s.clock.Now(),
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.db.WithContext(ctx).
		Model(&domain.Settings{}).
		Where("id = ?", domain.SettingsRowID).
		Scan(&settings).Error
	if err != nil {
		return domain.Settings{}, err
	}
	if settings.ID == 0 {
		return s.defaultSettings(), nil
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	if req.MaxSlots != nil && *req.MaxSlots <= 0 {
		return domain.Settings{}, domain.ErrInvalidSettings
	}
	if req.CostPoints != nil && *req.CostPoints <= 0 {
		return domain.Settings{}, domain.ErrInvalidSettings
	}
	if req.DurationDays != nil && *req.DurationDays <= 0 {
		return domain.Settings{}, domain.ErrInvalidSettings
	}

	var settings domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lockSettings(ctx, tx)
		if err != nil {
			return err
		}
		if req.MaxSlots != nil {
			current.MaxSlots = *req.MaxSlots
		}
		if req.CostPoints != nil {
			current.CostPoints = *req.CostPoints
		}
		if req.DurationDays != nil {
			current.DurationDays = *req.DurationDays
		}
		current.UpdatedAt = s.clock.Now()
		if err := tx.WithContext(ctx).Exec(
			`UPDATE featured_settings SET max_slots = ?, cost_points = ?, duration_days = ?, updated_at = ? WHERE id = ?`,
			current.MaxSlots,
			current.CostPoints,
			current.DurationDays,
			current.UpdatedAt,
			domain.SettingsRowID,
		).Error; err != nil {
			return err
		}
		settings = current
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// lockSettings reads the singleton settings row FOR UPDATE, seeding it from
// config defaults when it does not exist yet.
func (s *Service) lockSettings(ctx context.Context, tx *gorm.DB) (domain.Settings, error) {
	var settings domain.Settings
	err := tx.WithContext(ctx).Raw(
		`SELECT id, max_slots, cost_points, duration_days, updated_at
		 FROM featured_settings WHERE id = ? FOR UPDATE`,
		domain.SettingsRowID,
	).Scan(&settings).Error
	if err != nil {
		return domain.Settings{}, err
	}
	if settings.ID != 0 {
		return settings, nil
	}

	settings = s.defaultSettings()
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&settings).Error; err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *Service) defaultSettings() domain.Settings {
	return domain.Settings{
		ID:           domain.SettingsRowID,
		MaxSlots:     s.cfg.Featured.MaxSlots,
		CostPoints:   s.cfg.Featured.CostPoints,
		DurationDays: s.cfg.Featured.DurationDays,
		UpdatedAt:    s.clock.Now(),
	}
}
