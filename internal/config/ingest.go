package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IngestPolicy holds the tunables of the batch ingestion pipeline.
type IngestPolicy struct {
	MaxBatchSize    int           `mapstructure:"maxBatchSize"`
	InsertChunkSize int           `mapstructure:"insertChunkSize"`
	CatalogTTL      time.Duration `mapstructure:"catalogTTL"`
}

func DefaultIngestPolicy() IngestPolicy {
	return IngestPolicy{
		MaxBatchSize:    10000,
		InsertChunkSize: 500,
		CatalogTTL:      10 * time.Minute,
	}
}

type IngestPolicyHolder struct {
	current atomic.Value // holds IngestPolicy
}

// NewIngestPolicyHolder reads ingest.yml from the usual config paths and
// keeps watching it. A missing file falls back to defaults.
func NewIngestPolicyHolder(cfg Config) (*IngestPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("ingest")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/healx/config") // Volume-mounted config
	v.AddConfigPath("/etc/healx")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("HEALX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIngestPolicy()
	if cfg.CatalogCacheTTL > 0 {
		defaults.CatalogTTL = cfg.CatalogCacheTTL
	}
	return newIngestPolicyHolder(v, defaults, true)
}

// NewIngestPolicyHolderFromFile loads the policy from an explicit path without watching it.
func NewIngestPolicyHolderFromFile(path string) (*IngestPolicyHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newIngestPolicyHolder(v, DefaultIngestPolicy(), false)
}

// NewStaticIngestPolicyHolder returns a holder that always yields p.
func NewStaticIngestPolicyHolder(p IngestPolicy) *IngestPolicyHolder {
	holder := &IngestPolicyHolder{}
	holder.current.Store(p)
	return holder
}

func newIngestPolicyHolder(v *viper.Viper, defaults IngestPolicy, watch bool) (*IngestPolicyHolder, error) {
	v.SetDefault("ingest.maxBatchSize", defaults.MaxBatchSize)
	v.SetDefault("ingest.insertChunkSize", defaults.InsertChunkSize)
	v.SetDefault("ingest.catalogTTL", defaults.CatalogTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read ingest policy: %w", err)
		}
		fileLoaded = false
	}

	var policy IngestPolicy
	if err := v.UnmarshalKey("ingest", &policy); err != nil {
		return nil, err
	}
	if err := validateIngestPolicy(policy); err != nil {
		return nil, err
	}

	holder := &IngestPolicyHolder{}
	holder.current.Store(policy)

	if !watch || !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log := zap.L().Named("config.ingest")
		var updated IngestPolicy
		if err := v.UnmarshalKey("ingest", &updated); err != nil {
			log.Warn("ingest policy reload failed", zap.Error(err))
			return
		}
		if err := validateIngestPolicy(updated); err != nil {
			log.Warn("invalid ingest policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ingest policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *IngestPolicyHolder) Get() IngestPolicy {
	if h == nil {
		return DefaultIngestPolicy()
	}
	return h.current.Load().(IngestPolicy)
}

func validateIngestPolicy(p IngestPolicy) error {
	if p.MaxBatchSize <= 0 {
		return errors.New("ingest.maxBatchSize must be positive")
	}
	if p.InsertChunkSize <= 0 {
		return errors.New("ingest.insertChunkSize must be positive")
	}
	if p.CatalogTTL <= 0 {
		return errors.New("ingest.catalogTTL must be positive")
	}
	return nil
}
