package domain

import (
	"context"
	"errors"
	"fmt"
)

type Service interface {
	ProcessBatch(ctx context.Context, userID string, req BatchIngestRequest, opts IngestOptions) (*BatchResult, error)
}

var (
	ErrInvalidUser             = errors.New("invalid_user_id")
	ErrInvalidObservationValue = errors.New("invalid_observation_value")
	ErrInvalidRecordedAt       = errors.New("invalid_recorded_at")
	ErrInvalidRawMetadata      = errors.New("invalid_raw_metadata")
	ErrInvalidIdempotencyKey   = errors.New("invalid_idempotency_key")
	ErrBatchTooLarge           = errors.New("batch_too_large")
	ErrBatchInsertFailed       = errors.New("batch_insert_failed")
	ErrIdempotencyConflict     = errors.New("idempotency_conflict")
	ErrIdempotencyKeyReused    = errors.New("idempotency_key_reused")
	ErrBatchConflict           = errors.New("batch_conflict")
)

// RecordError points at the first offending record of a rejected batch.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("data[%d]: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
