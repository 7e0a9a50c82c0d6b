package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/smallbiznis/healx/internal/clock"
	"github.com/smallbiznis/healx/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

// NewSigner picks the GCS signer when a bucket is configured and the local
// fallback otherwise.
func NewSigner(p Params) (Signer, error) {
	log := p.Log.Named("storage")
	bucket := strings.TrimSpace(p.Cfg.Storage.Bucket)
	if bucket == "" {
		log.Warn("storage bucket not configured, upload urls will not be usable")
		return NewLocalSigner(p.Clock), nil
	}

	client, err := gcs.NewClient(context.Background(), ClientOptions(p.Cfg.Storage)...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Info("gcs upload signer ready", zap.String("bucket", bucket))
	return &GCSSigner{
		bucket: client.Bucket(bucket),
		name:   bucket,
		ttl:    p.Cfg.Storage.UploadURLTTL,
		clock:  p.Clock,
	}, nil
}

// ClientOptions prefers inline credentials, then a credentials file, then ADC.
func ClientOptions(cfg config.StorageConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

type GCSSigner struct {
	bucket *gcs.BucketHandle
	name   string
	ttl    time.Duration
	clock  clock.Clock
}

func (s *GCSSigner) Bucket() string { return s.name }

func (s *GCSSigner) SignUpload(ctx context.Context, req SignRequest) (SignedUpload, error) {
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expires := s.clock.Now().Add(ttl)

	url, err := s.bucket.SignedURL(req.ObjectKey, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: req.ContentType,
		Expires:     expires,
	})
	if err != nil {
		return SignedUpload{}, fmt.Errorf("%w: %w", ErrSignFailed, err)
	}
	return SignedUpload{URL: url, Bucket: s.name, ExpiresAt: expires}, nil
}
