package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("CREATE TABLE a (x Int8);\n\n  ; CREATE TABLE b (y Int8);  ")
	assert.Equal(t, []string{"CREATE TABLE a (x Int8)", "CREATE TABLE b (y Int8)"}, got)
	assert.Empty(t, SplitStatements("  \n"))
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, dir := range []struct {
		fsys fs.FS
		name string
	}{
		{PostgresFS, "postgres"},
		{ClickhouseFS, "clickhouse"},
	} {
		files, err := sqlFiles(dir.fsys, dir.name)
		require.NoError(t, err)
		require.NotEmpty(t, files, dir.name)
		assert.Equal(t, "001_market_snapshots.sql", files[0])

		data, err := fs.ReadFile(dir.fsys, dir.name+"/"+files[0])
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "market_snapshots"))
	}
}

func TestClickhouseMigrationUsesDatabasePlaceholder(t *testing.T) {
	data, err := fs.ReadFile(ClickhouseFS, "clickhouse/001_market_snapshots.sql")
	require.NoError(t, err)
	body := strings.ReplaceAll(string(data), "{database}", "pendle")
	stmts := SplitStatements(body)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "pendle.market_snapshots")
}
