package pushmetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"gorm.io/gorm"
)

// VaultStats holds the gauges pushed on every tick. It owns its registry so
// request-level metrics never leave the process this way.
type VaultStats struct {
	registry *prometheus.Registry

	observations prometheus.Gauge
	sources      prometheus.Gauge
	catalogSize  prometheus.Gauge
	memoryBytes  prometheus.Gauge
}

func NewVaultStats(serviceName string) *VaultStats {
	constLabels := prometheus.Labels{"service": serviceName}
	s := &VaultStats{
		registry: prometheus.NewRegistry(),
		observations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "healx_vault_observations",
			Help:        "Stored health observations.",
			ConstLabels: constLabels,
		}),
		sources: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "healx_vault_data_sources",
			Help:        "Registered data sources.",
			ConstLabels: constLabels,
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "healx_vault_catalog_size",
			Help:        "Metric definitions in the cached catalog snapshot.",
			ConstLabels: constLabels,
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "healx_process_memory_bytes",
			Help:        "Memory obtained from the OS.",
			ConstLabels: constLabels,
		}),
	}
	s.registry.MustRegister(s.observations, s.sources, s.catalogSize, s.memoryBytes)
	return s
}

func (s *VaultStats) Registry() *prometheus.Registry {
	return s.registry
}

// Refresh samples the database and catalog. Counting errors leave the
// previous value in place.
func (s *VaultStats) Refresh(ctx context.Context, db *gorm.DB, catalog catalogdomain.Resolver) error {
	var firstErr error
	if db != nil {
		var observations int64
		if err := db.WithContext(ctx).Table("health_observations").Count(&observations).Error; err != nil {
			firstErr = err
		} else {
			s.observations.Set(float64(observations))
		}

		var sources int64
		if err := db.WithContext(ctx).Table("data_sources").Count(&sources).Error; err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.sources.Set(float64(sources))
		}
	}
	if catalog != nil {
		s.catalogSize.Set(float64(catalog.Stats().Size))
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.memoryBytes.Set(float64(m.Sys))
	return firstErr
}
