package user

import (
	"github.com/showyourproject/backend/internal/user/repository"
	"github.com/showyourproject/backend/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
