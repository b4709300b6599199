package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded()))
	require.NoError(t, ValidateDir("migrations"))
}

func TestRunUpAndDownOnSQLite(t *testing.T) {
	conn := openSQLite(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, Run(ctx, sqlDB, "sqlite", "", "up"))
	for _, table := range []string{"order_submissions", "settlement_entries", "order_form_drafts", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s after up", table)
		}
	}
	require.True(t, conn.Migrator().HasIndex("outbox_events", "ux_outbox_events_event_aggregate"))

	require.NoError(t, MigrateToVersion(ctx, sqlDB, "sqlite", "", "20260301090200"))
	require.False(t, conn.Migrator().HasTable("outbox_events"))
	require.True(t, conn.Migrator().HasTable("order_form_drafts"))
}

func TestDialect(t *testing.T) {
	cases := map[string]string{"": "postgres", "postgres": "postgres", "SQLite": "sqlite3"}
	for in, want := range cases {
		got, err := Dialect(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := Dialect("mysql")
	require.Error(t, err)
}

func TestCreateSQLMigrationBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "Add Index", now)
	require.NoError(t, err)
	require.Equal(t, "20260301090000_add_index.sql", filepath.Base(first))

	second, err := createSQLMigration(dir, "add index", now)
	require.NoError(t, err)
	require.Equal(t, "20260301090001_add_index.sql", filepath.Base(second))

	body, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Down")
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateFSChecksAnnotations(t *testing.T) {
	cases := map[string]string{
		"down before up": "-- +goose Down\nDROP TABLE t;\n-- +goose Up\nCREATE TABLE t (id int);\n",
		"missing down":   "-- +goose Up\nCREATE TABLE t (id int);\n",
		"unbalanced":     "-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE t (id int);\n-- +goose Down\nDROP TABLE t;\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"20260301090000_create_t.sql": {Data: []byte(body)}}
			require.Error(t, ValidateFS(fsys))
		})
	}

	ok := fstest.MapFS{
		"20260301090000_create_t.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE t (id int);\n-- +goose StatementEnd\n-- +goose Down\nDROP TABLE t;\n")},
		"README.md":                   {Data: []byte("ignored")},
	}
	require.NoError(t, ValidateFS(ok))
}
