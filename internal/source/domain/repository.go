package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*DataSource, error)
	// InsertIgnore inserts the source unless a row with the same name exists.
	// It reports whether this call created the row.
	InsertIgnore(ctx context.Context, db *gorm.DB, src *DataSource) (bool, error)
}
