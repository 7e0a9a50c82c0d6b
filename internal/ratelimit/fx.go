package ratelimit

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ratelimit.batch",
	fx.Provide(NewBatchIngestLimiter),
	fx.Invoke(reportLimiter),
)

func reportLimiter(l *BatchIngestLimiter, log *zap.Logger) {
	if !l.Enabled() {
		log.Info("batch ingest rate limiting disabled")
		return
	}
	log.Info("batch ingest rate limiting enabled",
		zap.Float64("user_rate", l.userRate),
		zap.Int("user_burst", l.userBurst),
		zap.Duration("lock_ttl", l.lockTTL),
	)
}
