package domain

import (
	"context"
	"errors"
	"time"
)

// Resolver maps metric codes to catalog ids from a process-wide snapshot.
type Resolver interface {
	// Warm loads the snapshot if it is missing or expired.
	Warm(ctx context.Context) error
	Resolve(ctx context.Context, code string) (int64, bool, error)
	// Invalidate drops the snapshot; the next access reloads it.
	Invalidate()
	Stats() Stats
}

type Stats struct {
	Loaded   bool      `json:"loaded"`
	Size     int       `json:"size"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

var (
	ErrCatalogUnavailable = errors.New("catalog_unavailable")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidID          = errors.New("invalid_id")
)
