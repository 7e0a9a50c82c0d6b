package repository

import (
	"context"

	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
	"gorm.io/gorm"
)

const defaultChunkSize = 500

type repo struct{}

func Provide() observationdomain.Repository {
	return &repo{}
}

func (r *repo) InsertObservations(ctx context.Context, db *gorm.DB, rows []observationdomain.Observation, chunkSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	res := db.WithContext(ctx).CreateInBatches(rows, chunkSize)
	return res.RowsAffected, res.Error
}

func (r *repo) FindBatch(ctx context.Context, db *gorm.DB, userID, idempotencyKey string) (*observationdomain.IngestBatch, error) {
	var batches []observationdomain.IngestBatch
	err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).
		Limit(1).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, batch *observationdomain.IngestBatch) error {
	return db.WithContext(ctx).Create(batch).Error
}
