package storage

import (
	"context"
	"errors"
	"time"
)

// FallbackUploadURL is returned when no bucket is configured.
const FallbackUploadURL = "http://localhost:fake-s3/upload"

var ErrSignFailed = errors.New("sign_upload_failed")

type SignRequest struct {
	ObjectKey   string
	ContentType string
}

type SignedUpload struct {
	URL       string
	Bucket    string
	ExpiresAt time.Time
	// Note is set when the URL cannot actually receive uploads.
	Note string
}

// Signer issues short-lived credentials for a direct client upload.
type Signer interface {
	SignUpload(ctx context.Context, req SignRequest) (SignedUpload, error)
	Bucket() string
}
