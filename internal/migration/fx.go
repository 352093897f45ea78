package migration

import (
	"github.com/showyourproject/backend/internal/config"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/internal/seed"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite deployments take the gorm schema directly.
			if err := conn.AutoMigrate(
				&userdomain.User{},
				&pointsdomain.PointTransaction{},
				&projectdomain.Project{},
				&projectdomain.Vote{},
				&projectdomain.Click{},
				&featureddomain.FeaturedSlot{},
				&featureddomain.Settings{},
				&socialdomain.SocialPost{},
				&socialdomain.Platform{},
			); err != nil {
				return err
			}
		}

		return seed.Ensure(conn, cfg)
	}),
)
