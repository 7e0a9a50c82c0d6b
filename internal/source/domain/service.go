package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Registry maps a data source name to its id, creating the row on first use.
// tx is the caller's unit of work; a created id is usable before commit.
type Registry interface {
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, name string) (id int64, created bool, err error)
	// Remember records a committed name -> id pair for later lookups.
	Remember(name string, id int64)
}

var (
	ErrInvalidSourceName = errors.New("invalid_source_name")
	ErrSourceConflict    = errors.New("source_conflict")
)
