package featured

import (
	"github.com/showyourproject/backend/internal/featured/service"
	"go.uber.org/fx"
)

var Module = fx.Module("featured.service",
	fx.Provide(service.New),
)
