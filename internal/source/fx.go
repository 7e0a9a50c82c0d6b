package source

import (
	"github.com/smallbiznis/healx/internal/source/repository"
	"github.com/smallbiznis/healx/internal/source/service"
	"go.uber.org/fx"
)

var Module = fx.Module("source.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
