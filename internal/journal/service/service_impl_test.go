package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/healx/internal/clock"
	journaldomain "github.com/smallbiznis/healx/internal/journal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupJournal(t *testing.T) (journaldomain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&journaldomain.JournalEntry{}))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func intPtr(v int) *int { return &v }

func TestCreateJournalEntry(t *testing.T) {
	svc, db := setupJournal(t)

	res, err := svc.Create(context.Background(), "user-1", journaldomain.CreateRequest{
		EntryDate: "2025-03-01",
		Content:   "# Day 12\nSlept well, HRV up.",
		MoodScore: intPtr(8),
		Tags:      []string{"sleep", " hrv ", "sleep", ""},
	})
	require.NoError(t, err)
	_, err = uuid.Parse(res.ID)
	require.NoError(t, err)

	var stored journaldomain.JournalEntry
	require.NoError(t, db.First(&stored, "id = ?", res.ID).Error)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, []string{"sleep", "hrv"}, []string(stored.Tags))
	require.NotNil(t, stored.MoodScore)
	assert.Equal(t, 8, *stored.MoodScore)
}

func TestCreateJournalEntryValidation(t *testing.T) {
	svc, _ := setupJournal(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		req    journaldomain.CreateRequest
		want   error
	}{
		{"missing user", "", journaldomain.CreateRequest{EntryDate: "2025-03-01"}, journaldomain.ErrInvalidUser},
		{"missing date", "user-1", journaldomain.CreateRequest{}, journaldomain.ErrInvalidEntryDate},
		{"bad date", "user-1", journaldomain.CreateRequest{EntryDate: "01/03/2025"}, journaldomain.ErrInvalidEntryDate},
		{"mood too low", "user-1", journaldomain.CreateRequest{EntryDate: "2025-03-01", MoodScore: intPtr(0)}, journaldomain.ErrInvalidMoodScore},
		{"mood too high", "user-1", journaldomain.CreateRequest{EntryDate: "2025-03-01", MoodScore: intPtr(11)}, journaldomain.ErrInvalidMoodScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.userID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateJournalEntryWithoutMood(t *testing.T) {
	svc, _ := setupJournal(t)

	res, err := svc.Create(context.Background(), "user-1", journaldomain.CreateRequest{EntryDate: "2025-03-02", Content: "rest day"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
}
