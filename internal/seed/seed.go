package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/config"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultAdminEmail   = "admin@showyourproject.com"
	defaultAdminDisplay = "Site Admin"
)

// Ensure seeds the singleton settings row, the per-platform bookkeeping
// rows and the default admin user. Every write is idempotent so startup
// can run it unconditionally.
func Ensure(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureFeaturedSettings(ctx, tx, cfg); err != nil {
			return err
		}
		if err := ensureSocialPlatforms(ctx, tx); err != nil {
			return err
		}
		return ensureAdminUser(ctx, tx, node)
	})
}

func ensureFeaturedSettings(ctx context.Context, tx *gorm.DB, cfg config.Config) error {
	settings := featureddomain.Settings{
		ID:           featureddomain.SettingsRowID,
		MaxSlots:     cfg.Featured.MaxSlots,
		CostPoints:   cfg.Featured.CostPoints,
		DurationDays: cfg.Featured.DurationDays,
		UpdatedAt:    time.Now().UTC(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&settings).Error
}

func ensureSocialPlatforms(ctx context.Context, tx *gorm.DB) error {
	now := time.Now().UTC()
	for _, platform := range socialdomain.KnownPlatforms {
		row := socialdomain.Platform{ID: platform, Enabled: true, UpdatedAt: now}
		err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("email = ?", defaultAdminEmail).First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	user = userdomain.User{
		ID:          node.Generate(),
		DisplayName: defaultAdminDisplay,
		Email:       defaultAdminEmail,
		Tier:        userdomain.TierAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&user).Error
}
