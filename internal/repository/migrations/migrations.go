package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	pkgch "PendlePulse/pkg/clickhouse"
	"PendlePulse/pkg/postgres"
)

// RunPostgres applies all embedded SQL files in lexical order.
// Migrations are expected to be idempotent.
func RunPostgres(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}
	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// RunClickhouse creates the database and applies embedded SQL files statement by statement.
// The {database} placeholder is substituted with the target database name.
func RunClickhouse(ctx context.Context, client *pkgch.Client, database string) error {
	if database == "" {
		return fmt.Errorf("clickhouse database is required")
	}
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}
	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		body := strings.ReplaceAll(string(data), "{database}", database)
		stmts = append(stmts, SplitStatements(body)...)
	}
	return client.InitSchema(ctx, stmts)
}

// SplitStatements splits a SQL script on semicolons and drops empty statements.
// ClickHouse does not accept multi-statement Exec.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
