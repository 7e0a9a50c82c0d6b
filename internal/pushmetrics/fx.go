package pushmetrics

import (
	"context"
	"time"

	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"github.com/smallbiznis/healx/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("push.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

type workerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Catalog catalogdomain.Resolver
	Pusher  Pusher `optional:"true"`
}

func startWorker(p workerParams) {
	if p.Pusher == nil {
		return
	}
	log := p.Log.Named("push.metrics")
	stats := NewVaultStats(p.Cfg.AppName)
	interval := p.Cfg.PushMetrics.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting vault metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				pushOnce(ctx, log, stats, p.DB, p.Catalog, p.Pusher)
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx, log, stats, p.DB, p.Catalog, p.Pusher)
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func pushOnce(ctx context.Context, log *zap.Logger, stats *VaultStats, db *gorm.DB, catalog catalogdomain.Resolver, pusher Pusher) {
	if err := stats.Refresh(ctx, db, catalog); err != nil {
		log.Warn("vault stats refresh failed", zap.Error(err))
	}
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := pusher.Push(pushCtx, stats.Registry()); err != nil {
		log.Warn("vault metrics push failed", zap.Error(err))
	}
}
