package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type note struct {
	ID   int64  `gorm:"primaryKey"`
	Body string `gorm:"not null"`
}

func TestStoreCreate(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&note{}))

	store := ProvideStore[note](db)
	require.NoError(t, store.Create(context.Background(), &note{ID: 1, Body: "fasted"}))
	assert.Error(t, store.Create(context.Background(), &note{ID: 1, Body: "again"}))

	var stored note
	require.NoError(t, db.First(&stored, 1).Error)
	assert.Equal(t, "fasted", stored.Body)
}
