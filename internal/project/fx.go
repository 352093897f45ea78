package project

import (
	"github.com/showyourproject/backend/internal/project/repository"
	"github.com/showyourproject/backend/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
