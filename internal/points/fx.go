package points

import (
	"github.com/showyourproject/backend/internal/points/service"
	"go.uber.org/fx"
)

var Module = fx.Module("points.service",
	fx.Provide(service.New),
)
