package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, userID string, req CreateRequest) (*CreateResponse, error)
}

var (
	ErrInvalidUser      = errors.New("invalid_user_id")
	ErrInvalidEntryDate = errors.New("invalid_entry_date")
	ErrInvalidMoodScore = errors.New("invalid_mood_score")
	ErrInvalidTags      = errors.New("invalid_tags")
)
