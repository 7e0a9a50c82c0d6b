package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertObservations(ctx context.Context, db *gorm.DB, rows []Observation, chunkSize int) (int64, error)
	FindBatch(ctx context.Context, db *gorm.DB, userID, idempotencyKey string) (*IngestBatch, error)
	InsertBatch(ctx context.Context, db *gorm.DB, batch *IngestBatch) error
}
