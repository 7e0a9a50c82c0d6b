// Package seed loads the metric catalog from a YAML file into the database.
// It runs as a separate process; the API only ever reads the catalog.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const maxCodeLength = 50

var ErrDuplicateDefinition = errors.New("duplicate_definition")

// CatalogFile is the on-disk layout of a catalog seed file.
type CatalogFile struct {
	Metrics []catalogdomain.MetricDefinition `yaml:"metrics"`
}

// LoadCatalogFile reads and validates the catalog at path.
func LoadCatalogFile(path string) ([]catalogdomain.MetricDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes definitions and rejects entries the resolver could not serve.
func LoadCatalog(r io.Reader) ([]catalogdomain.MetricDefinition, error) {
	var file CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seenIDs := make(map[int64]struct{}, len(file.Metrics))
	seenCodes := make(map[string]struct{}, len(file.Metrics))
	for i := range file.Metrics {
		def := &file.Metrics[i]
		def.Code = strings.TrimSpace(def.Code)
		def.DisplayName = strings.TrimSpace(def.DisplayName)

		switch {
		case def.ID <= 0:
			return nil, fmt.Errorf("metrics[%d]: %w", i, catalogdomain.ErrInvalidID)
		case def.Code == "" || len(def.Code) > maxCodeLength:
			return nil, fmt.Errorf("metrics[%d]: %w", i, catalogdomain.ErrInvalidCode)
		case !def.Category.Valid():
			return nil, fmt.Errorf("metrics[%d] %s: %w", i, def.Code, catalogdomain.ErrInvalidCategory)
		}
		if def.DisplayName == "" {
			def.DisplayName = def.Code
		}
		if def.RefMin != nil && def.RefMax != nil && *def.RefMin > *def.RefMax {
			return nil, fmt.Errorf("metrics[%d] %s: ref_min above ref_max", i, def.Code)
		}

		if _, ok := seenIDs[def.ID]; ok {
			return nil, fmt.Errorf("metrics[%d] id %d: %w", i, def.ID, ErrDuplicateDefinition)
		}
		if _, ok := seenCodes[def.Code]; ok {
			return nil, fmt.Errorf("metrics[%d] code %s: %w", i, def.Code, ErrDuplicateDefinition)
		}
		seenIDs[def.ID] = struct{}{}
		seenCodes[def.Code] = struct{}{}
	}
	return file.Metrics, nil
}

// SeedCatalog upserts defs by code in one transaction.
func SeedCatalog(ctx context.Context, db *gorm.DB, repo catalogdomain.Repository, defs []catalogdomain.MetricDefinition, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.Upsert(ctx, tx, defs)
	})
	if err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	log.Info("metric catalog seeded", zap.Int("definitions", len(defs)))
	return nil
}
