package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListCodes(ctx context.Context, db *gorm.DB) ([]CodeEntry, error)
	Upsert(ctx context.Context, db *gorm.DB, defs []MetricDefinition) error
}
