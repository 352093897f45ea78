package socialshare

import (
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/socialshare/adapters"
	"github.com/showyourproject/backend/internal/socialshare/adapters/discord"
	"github.com/showyourproject/backend/internal/socialshare/adapters/facebook"
	"github.com/showyourproject/backend/internal/socialshare/adapters/reddit"
	"github.com/showyourproject/backend/internal/socialshare/adapters/telegram"
	"github.com/showyourproject/backend/internal/socialshare/adapters/twitter"
	"github.com/showyourproject/backend/internal/socialshare/service"
	"go.uber.org/fx"
)

func newRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		reddit.NewFactory(cfg),
		twitter.NewFactory(cfg),
		facebook.NewFactory(cfg),
		discord.NewFactory(cfg),
		telegram.NewFactory(cfg),
	)
}

var Module = fx.Module("socialshare.service",
	fx.Provide(newRegistry),
	fx.Provide(service.New),
)
