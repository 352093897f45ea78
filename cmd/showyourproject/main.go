package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/logger"
	"github.com/showyourproject/backend/internal/migration"
	"github.com/showyourproject/backend/internal/scheduler"
	"github.com/showyourproject/backend/internal/server"
	"github.com/showyourproject/backend/pkg/db"
	"go.uber.org/fx"
)

// Monolith entrypoint: API server and background sweeper in one process.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,

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
