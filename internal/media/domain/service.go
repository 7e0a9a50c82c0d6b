package domain

import (
	"context"
	"errors"
)

type Service interface {
	IssueUploadURL(ctx context.Context, userID string, req UploadRequest) (*UploadURL, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user_id")
	ErrInvalidFilename    = errors.New("invalid_filename")
	ErrInvalidFileType    = errors.New("invalid_file_type")
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrUploadURLFailed    = errors.New("upload_url_failed")
)
