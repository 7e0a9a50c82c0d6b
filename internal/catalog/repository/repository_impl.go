package repository

import (
	"context"

	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) ListCodes(ctx context.Context, db *gorm.DB) ([]catalogdomain.CodeEntry, error) {
	var rows []catalogdomain.CodeEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, code FROM metric_definitions`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert inserts definitions or refreshes their descriptive columns by code.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, defs []catalogdomain.MetricDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "category", "unit", "description", "ref_min", "ref_max"}),
		}).
		Create(&defs).Error
}
