package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/healx/internal/cache"
	"github.com/smallbiznis/healx/internal/clock"
	obsmetrics "github.com/smallbiznis/healx/internal/observability/metrics"
	sourcedomain "github.com/smallbiznis/healx/internal/source/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxResolveAttempts = 3

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Repo       sourcedomain.Repository
	Cache      cache.SourceCache   `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	repo       sourcedomain.Repository
	cache      cache.SourceCache
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) sourcedomain.Registry {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:        p.Log.Named("source.service"),
		clock:      clk,
		repo:       p.Repo,
		cache:      p.Cache,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) ResolveOrCreate(ctx context.Context, tx *gorm.DB, name string) (int64, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, sourcedomain.ErrInvalidSourceName
	}

	if s.cache != nil {
		if id, ok := s.cache.GetSource(name); ok {
			return id, false, nil
		}
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		existing, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return 0, false, fmt.Errorf("find source: %w", err)
		}
		if existing != nil {
			return existing.ID, false, nil
		}

		src := &sourcedomain.DataSource{
			Name:      name,
			IsTrusted: false,
			CreatedAt: s.clock.Now(),
		}
		created, err := s.repo.InsertIgnore(ctx, tx, src)
		if err != nil {
			return 0, false, fmt.Errorf("insert source: %w", err)
		}
		if created {
			if src.ID == 0 {
				// Driver did not hand back the generated key.
				if src, err = s.repo.FindByName(ctx, tx, name); err != nil || src == nil {
					return 0, false, fmt.Errorf("find created source: %w", errors.Join(err, sourcedomain.ErrSourceConflict))
				}
			}
			s.obsMetrics.RecordSourceCreated(ctx)
			s.log.Info("data source created",
				zap.String("source_name", name),
				zap.Int64("source_id", src.ID),
			)
			return src.ID, true, nil
		}

		// Another writer owns the name; look again.
		s.log.Debug("data source insert lost race",
			zap.String("source_name", name),
			zap.Int("attempt", attempt),
		)
	}

	s.log.Warn("data source still not visible after conflict",
		zap.String("source_name", name),
		zap.Int("attempts", maxResolveAttempts),
	)
	return 0, false, sourcedomain.ErrSourceConflict
}

func (s *Service) Remember(name string, id int64) {
	if s.cache == nil {
		return
	}
	s.cache.SetSource(strings.TrimSpace(name), id)
}
