package media

import (
	"github.com/smallbiznis/healx/internal/media/service"
	"go.uber.org/fx"
)

var Module = fx.Module("media.service",
	fx.Provide(service.New),
)
