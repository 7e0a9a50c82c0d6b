package journal

import (
	"github.com/smallbiznis/healx/internal/journal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("journal.service",
	fx.Provide(service.New),
)
