package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/healx/internal/cache"
	"github.com/smallbiznis/healx/internal/clock"
	sourcedomain "github.com/smallbiznis/healx/internal/source/domain"
	"github.com/smallbiznis/healx/internal/source/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByName(ctx context.Context, db *gorm.DB, name string) (*sourcedomain.DataSource, error) {
	args := m.Called(name)
	src, _ := args.Get(0).(*sourcedomain.DataSource)
	return src, args.Error(1)
}

func (m *mockRepo) InsertIgnore(ctx context.Context, db *gorm.DB, src *sourcedomain.DataSource) (bool, error) {
	args := m.Called(src.Name)
	return args.Bool(0), args.Error(1)
}

func TestResolveOrCreateCreatesOnce(t *testing.T) {
	svc, db := setupRegistry(t, nil)
	ctx := context.Background()

	id, created, err := svc.ResolveOrCreate(ctx, db, "Lab A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	again, created, err := svc.ResolveOrCreate(ctx, db, "Lab A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	assert.Equal(t, int64(1), countSources(t, db, "Lab A"))
}

func TestResolveOrCreateAssignsJSONSafeIDs(t *testing.T) {
	svc, db := setupRegistry(t, nil)
	ctx := context.Background()

	first, _, err := svc.ResolveOrCreate(ctx, db, "Lab A")
	require.NoError(t, err)
	second, _, err := svc.ResolveOrCreate(ctx, db, "Lab B")
	require.NoError(t, err)

	const maxSafeInteger = int64(1) << 53
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Less(t, second, maxSafeInteger)
}

func TestResolveOrCreateLooksUpKeyNotReturnedByDriver(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByName", "Lab A").Return(nil, nil).Once()
	repo.On("InsertIgnore", "Lab A").Return(true, nil).Once()
	repo.On("FindByName", "Lab A").Return(&sourcedomain.DataSource{ID: 5, Name: "Lab A"}, nil).Once()

	svc := newRegistryWithRepo(t, repo, nil)
	id, created, err := svc.ResolveOrCreate(context.Background(), nil, "Lab A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), id)
	repo.AssertExpectations(t)
}

func TestResolveOrCreateTrimsName(t *testing.T) {
	svc, db := setupRegistry(t, nil)
	ctx := context.Background()

	id, _, err := svc.ResolveOrCreate(ctx, db, "  Oura Ring ")
	require.NoError(t, err)
	again, created, err := svc.ResolveOrCreate(ctx, db, "Oura Ring")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestResolveOrCreateRejectsBlankName(t *testing.T) {
	svc, _ := setupRegistry(t, nil)

	_, _, err := svc.ResolveOrCreate(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, sourcedomain.ErrInvalidSourceName)
}

func TestResolveOrCreateReturnsWinnerAfterLostInsert(t *testing.T) {
	repo := new(mockRepo)
	winner := &sourcedomain.DataSource{ID: 77, Name: "Lab Z"}
	repo.On("FindByName", "Lab Z").Return(nil, nil).Once()
	repo.On("InsertIgnore", "Lab Z").Return(false, nil).Once()
	repo.On("FindByName", "Lab Z").Return(winner, nil).Once()

	svc := newRegistryWithRepo(t, repo, nil)
	id, created, err := svc.ResolveOrCreate(context.Background(), nil, "Lab Z")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(77), id)
	repo.AssertExpectations(t)
}

func TestResolveOrCreateGivesUpWithConflict(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByName", "Lab Z").Return(nil, nil).Times(maxResolveAttempts)
	repo.On("InsertIgnore", "Lab Z").Return(false, nil).Times(maxResolveAttempts)

	svc := newRegistryWithRepo(t, repo, nil)
	_, _, err := svc.ResolveOrCreate(context.Background(), nil, "Lab Z")
	assert.ErrorIs(t, err, sourcedomain.ErrSourceConflict)
	repo.AssertExpectations(t)
}

func TestResolveOrCreatePropagatesStorageError(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByName", "Lab A").Return(nil, errors.New("connection reset")).Once()

	svc := newRegistryWithRepo(t, repo, nil)
	_, _, err := svc.ResolveOrCreate(context.Background(), nil, "Lab A")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sourcedomain.ErrSourceConflict)
}

func TestResolveOrCreateUsesRememberedSource(t *testing.T) {
	repo := new(mockRepo)
	sources := cache.NewSourceCache(clock.NewFakeClock(time.Now()))

	svc := newRegistryWithRepo(t, repo, sources)
	svc.Remember("Lab A", 42)

	id, created, err := svc.ResolveOrCreate(context.Background(), nil, "Lab A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(42), id)
	repo.AssertNotCalled(t, "FindByName", mock.Anything)
}

func TestResolveOrCreateConcurrentFirstUse(t *testing.T) {
	svc, db := setupRegistry(t, nil)

	var wg sync.WaitGroup
	ids := make(chan int64, 10)
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				id, _, err := svc.ResolveOrCreate(context.Background(), tx, "Lab Z")
				if err != nil {
					return err
				}
				ids <- id
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	var first int64
	for id := range ids {
		if first == 0 {
			first = id
		}
		assert.Equal(t, first, id)
	}
	assert.Equal(t, int64(1), countSources(t, db, "Lab Z"))
}

func setupRegistry(t *testing.T, sources cache.SourceCache) (sourcedomain.Registry, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&sourcedomain.DataSource{}))

	return newRegistryWithRepo(t, repository.Provide(), sources), db
}

func newRegistryWithRepo(t *testing.T, repo sourcedomain.Repository, sources cache.SourceCache) sourcedomain.Registry {
	t.Helper()
	return New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  repo,
		Cache: sources,
	})
}

func countSources(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&sourcedomain.DataSource{}).Where("name = ?", name).Count(&count).Error)
	return count
}
