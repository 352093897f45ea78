package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/featured"
	"github.com/showyourproject/backend/internal/logger"
	"github.com/showyourproject/backend/internal/metrics"
	"github.com/showyourproject/backend/internal/migration"
	"github.com/showyourproject/backend/internal/points"
	"github.com/showyourproject/backend/internal/ratelimit"
	"github.com/showyourproject/backend/internal/scheduler"
	"github.com/showyourproject/backend/pkg/db"
	"go.uber.org/fx"
)

// Sweeper-only entrypoint. No HTTP server; the redis lock keeps a fleet of
// these from sweeping concurrently.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		ratelimit.Module,

		points.Module,
		featured.Module,
		scheduler.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
