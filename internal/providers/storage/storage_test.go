package storage

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/healx/internal/clock"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewSignerFallsBackWithoutBucket(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	signer, err := NewSigner(Params{
		Lc:    fxtest.NewLifecycle(t),
		Cfg:   config.Config{},
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
	})
	require.NoError(t, err)
	require.IsType(t, &LocalSigner{}, signer)

	up, err := signer.SignUpload(context.Background(), SignRequest{ObjectKey: "users/u/uploads/a.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, FallbackUploadURL, up.URL)
	assert.Equal(t, "storage bucket not configured", up.Note)
	assert.Equal(t, now.Add(15*time.Minute), up.ExpiresAt)
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Len(t, ClientOptions(config.StorageConfig{}), 1)
	assert.Len(t, ClientOptions(config.StorageConfig{CredentialsJSON: "{}", CredentialsFile: "/tmp/key.json"}), 2)
	assert.Len(t, ClientOptions(config.StorageConfig{CredentialsFile: "/tmp/key.json"}), 2)
}
