package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"PendlePulse/internal/domain/models"
	"PendlePulse/internal/repository/migrations"
	pkgch "PendlePulse/pkg/clickhouse"
)

func TestCHTime(t *testing.T) {
	ts := time.Date(2025, 1, 1, 9, 30, 15, 123456789, time.FixedZone("X", 3600))
	assert.Equal(t, "2025-01-01 08:30:15.123456", chTime(ts))
	assert.Equal(t, "2025-01-01 00:00:00.000000", chTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

// setupCHStore starts a ClickHouse container, applies migrations and returns a store.
func setupCHStore(t *testing.T) (*CHSnapshotStore, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping clickhouse integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp", "8123/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
			Env: map[string]string{
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	client, err := pkgch.NewClient(
		pkgch.WithHost(host),
		pkgch.WithPort(port.Int()),
		pkgch.WithCredentials("default", ""),
	)
	require.NoError(t, err, "failed to connect to clickhouse")
	require.NoError(t, migrations.RunClickhouse(ctx, client, "pendle_test"))

	store, err := NewCHSnapshotStore(ctx, client, "pendle_test")
	require.NoError(t, err)

	cleanup := func() {
		_ = store.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return store, cleanup
}

func TestCHSnapshotStore_RoundTripKeepsMicroseconds(t *testing.T) {
	store, cleanup := setupCHStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	early := base.Add(100 * time.Millisecond)
	late := base.Add(900*time.Millisecond + 250*time.Microsecond)
	pt1, pt2 := 0.95, 0.96

	// Written out of order within the same second.
	second, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: &late, PTPrice: &pt2, RawPayload: []byte(`{"name":"PT-B"}`)})
	require.NoError(t, err)
	first, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: &early, PTPrice: &pt1})
	require.NoError(t, err)

	rows, err := store.QueryRange(ctx, "m1", base)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, early, rows[0].Timestamp)
	assert.Equal(t, second.Timestamp, rows[1].Timestamp)
	assert.Equal(t, []byte(`{"name":"PT-B"}`), rows[1].RawPayload)
	assert.Nil(t, rows[0].SYPrice)

	rows, err = store.QueryRange(ctx, "m1", base.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)

	latest, err := store.Latest(ctx, "m1")
	require.NoError(t, err)
	require.Contains(t, latest, "m1")
	assert.Equal(t, 0.96, *latest["m1"].PTPrice)
	assert.Equal(t, late, latest["m1"].Timestamp)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
