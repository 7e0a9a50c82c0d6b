package migration

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(conn))
	// Idempotent on restart.
	require.NoError(t, Migrate(conn))

	for _, table := range []string{
		"metric_definitions",
		"data_sources",
		"health_observations",
		"ingest_batches",
		"journal_entries",
		"media_files",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("data_sources", "ux_data_sources_name"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.Equal(t, ups, downs)

	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(raw)
	assert.Contains(t, schema, "ux_data_sources_name")
	assert.Contains(t, schema, "chk_health_observations_one_value")
	assert.Contains(t, schema, "ux_ingest_batches_user_key")

	raw, err = fs.ReadFile(embeddedMigrations, migrationsDir+"/000002_source_sequence_and_request_fingerprint.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "request_fingerprint")
	assert.Contains(t, string(raw), "nextval('data_sources_id_seq')")
}
