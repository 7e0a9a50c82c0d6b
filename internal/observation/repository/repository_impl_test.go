package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
	"github.com/smallbiznis/healx/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&observationdomain.Observation{}, &observationdomain.IngestBatch{}))
	return conn
}

func TestInsertObservationsEnforcesOneValue(t *testing.T) {
	conn := openDB(t)
	r := Provide()
	now := time.Now().UTC()

	_, err := r.InsertObservations(context.Background(), conn, []observationdomain.Observation{
		{ID: 1, UserID: "u", MetricID: 1, SourceID: 1, RecordedAt: now, IngestedAt: now},
	}, 0)
	require.Error(t, err)
	assert.True(t, db.IsCheckViolation(err))

	value := 1.5
	n, err := r.InsertObservations(context.Background(), conn, []observationdomain.Observation{
		{ID: 2, UserID: "u", MetricID: 1, SourceID: 1, RecordedAt: now, IngestedAt: now, ValueNumeric: &value},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBatchLedgerIsUniquePerUserAndKey(t *testing.T) {
	conn := openDB(t)
	r := Provide()
	ctx := context.Background()

	missing, err := r.FindBatch(ctx, conn, "u", "k")
	require.NoError(t, err)
	assert.Nil(t, missing)

	batch := &observationdomain.IngestBatch{ID: 1, UserID: "u", IdempotencyKey: "k", SourceID: 9, Processed: 3, CreatedAt: time.Now().UTC()}
	require.NoError(t, r.InsertBatch(ctx, conn, batch))

	err = r.InsertBatch(ctx, conn, &observationdomain.IngestBatch{ID: 2, UserID: "u", IdempotencyKey: "k", CreatedAt: time.Now().UTC()})
	assert.True(t, db.IsDuplicateKeyErr(err))

	found, err := r.FindBatch(ctx, conn, "u", "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 3, found.Processed)
	assert.Equal(t, int64(9), found.SourceID)
}
