package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: data_sources.name")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062 (23000): Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection reset")))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.True(t, IsCheckViolation(errors.New("CHECK constraint failed: chk_health_observations_one_value")))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsCheckViolation(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23514"}))
}

func TestDialect(t *testing.T) {
	d, err := Dialect(Config{Type: "postgres", Host: "localhost", Port: "5432"})
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialect(Config{Type: "mysql"})
	assert.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = Dialect(Config{Type: "postgres", URL: "sqlite://local.db"})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestDialectSQLiteWaitsForWriteLock(t *testing.T) {
	d, err := Dialect(Config{Type: "sqlite", SQLitePath: "/var/lib/healx/healx.db"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/healx/healx.db?_busy_timeout=5000&_txlock=immediate", d.(*sqlite.Dialector).DSN)

	d, err = Dialect(Config{URL: "sqlite://local.db"})
	require.NoError(t, err)
	assert.Equal(t, "local.db?_busy_timeout=5000&_txlock=immediate", d.(*sqlite.Dialector).DSN)

	d, err = Dialect(Config{URL: "sqlite://local.db?_busy_timeout=100"})
	require.NoError(t, err)
	assert.Equal(t, "local.db?_busy_timeout=100", d.(*sqlite.Dialector).DSN)
}
