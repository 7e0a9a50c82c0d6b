package repository

import "context"

// Repository is a thin generic store over a single gorm model.
type Repository[T any] interface {
	Create(ctx context.Context, resource *T) error
}
