package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"github.com/smallbiznis/healx/internal/clock"
	"github.com/smallbiznis/healx/internal/config"
	obsmetrics "github.com/smallbiznis/healx/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	loadKey     = "metric_catalog"
	loadTimeout = 15 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       catalogdomain.Repository
	Clock      clock.Clock
	Policy     *config.IngestPolicyHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics        `optional:"true"`
}

type snapshot struct {
	codes      map[string]int64
	loadedAt   time.Time
	generation uint64
}

// Resolver keeps an immutable code -> id snapshot shared by all requests.
type Resolver struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       catalogdomain.Repository
	clock      clock.Clock
	policy     *config.IngestPolicyHolder
	obsMetrics *obsmetrics.Metrics

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	group      singleflight.Group
}

func New(p Params) catalogdomain.Resolver {
	return NewResolver(p)
}

func NewResolver(p Params) *Resolver {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Resolver{
		db:         p.DB,
		log:        p.Log.Named("catalog.resolver"),
		repo:       p.Repo,
		clock:      clk,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
	}
}

func (r *Resolver) Warm(ctx context.Context) error {
	_, err := r.snapshot(ctx)
	return err
}

func (r *Resolver) Resolve(ctx context.Context, code string) (int64, bool, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return 0, false, err
	}
	id, ok := snap.codes[code]
	return id, ok, nil
}

func (r *Resolver) Invalidate() {
	r.generation.Add(1)
	r.current.Store(nil)
	r.log.Info("metric catalog invalidated")
}

func (r *Resolver) Stats() catalogdomain.Stats {
	snap := r.current.Load()
	if snap == nil {
		return catalogdomain.Stats{}
	}
	return catalogdomain.Stats{
		Loaded:   true,
		Size:     len(snap.codes),
		LoadedAt: snap.loadedAt,
	}
}

func (r *Resolver) snapshot(ctx context.Context) (*snapshot, error) {
	current := r.current.Load()
	if r.fresh(current) {
		return current, nil
	}

	v, err, _ := r.group.Do(loadKey, func() (any, error) {
		if latest := r.current.Load(); r.fresh(latest) {
			return latest, nil
		}
		return r.load(ctx)
	})
	if err != nil {
		if current != nil {
			r.log.Warn("metric catalog refresh failed, serving stale snapshot",
				zap.Error(err),
				zap.Time("loaded_at", current.loadedAt),
			)
			return current, nil
		}
		return nil, fmt.Errorf("%w: %w", catalogdomain.ErrCatalogUnavailable, err)
	}
	return v.(*snapshot), nil
}

func (r *Resolver) load(ctx context.Context) (*snapshot, error) {
	generation := r.generation.Load()

	// Shared across waiters, so one caller going away must not cancel it.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	rows, err := r.repo.ListCodes(loadCtx, r.db)
	if err != nil {
		r.obsMetrics.RecordCatalogLoad(ctx, "error")
		return nil, err
	}

	codes := make(map[string]int64, len(rows))
	for _, row := range rows {
		codes[row.Code] = row.ID
	}
	snap := &snapshot{
		codes:      codes,
		loadedAt:   r.clock.Now(),
		generation: generation,
	}

	if r.generation.Load() == generation {
		r.current.Store(snap)
	}
	r.obsMetrics.RecordCatalogLoad(ctx, "success")
	r.log.Info("metric catalog loaded", zap.Int("size", len(codes)))
	return snap, nil
}

func (r *Resolver) fresh(snap *snapshot) bool {
	if snap == nil {
		return false
	}
	if snap.generation != r.generation.Load() {
		return false
	}
	return r.clock.Now().Before(snap.loadedAt.Add(r.ttl()))
}

func (r *Resolver) ttl() time.Duration {
	ttl := r.policy.Get().CatalogTTL
	if ttl <= 0 {
		return config.DefaultIngestPolicy().CatalogTTL
	}
	return ttl
}
