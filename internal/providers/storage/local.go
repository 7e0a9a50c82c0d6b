package storage

import (
	"context"
	"time"

	"github.com/smallbiznis/healx/internal/clock"
)

const localBucket = "unknown"

// LocalSigner hands out a placeholder URL for development without a bucket.
type LocalSigner struct {
	clock clock.Clock
}

func NewLocalSigner(clk clock.Clock) *LocalSigner {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &LocalSigner{clock: clk}
}

func (s *LocalSigner) Bucket() string { return localBucket }

func (s *LocalSigner) SignUpload(ctx context.Context, req SignRequest) (SignedUpload, error) {
	return SignedUpload{
		URL:       FallbackUploadURL,
		Bucket:    localBucket,
		ExpiresAt: s.clock.Now().Add(15 * time.Minute),
		Note:      "storage bucket not configured",
	}, nil
}
