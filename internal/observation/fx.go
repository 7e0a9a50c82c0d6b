package observation

import (
	"github.com/smallbiznis/healx/internal/observation/repository"
	"github.com/smallbiznis/healx/internal/observation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("observation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
