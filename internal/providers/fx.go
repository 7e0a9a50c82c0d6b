package providers

import (
	"github.com/smallbiznis/healx/internal/providers/storage"
	"go.uber.org/fx"
)

// Module bundles the external service adapters.
var Module = fx.Module("providers",
	storage.Module,
)
