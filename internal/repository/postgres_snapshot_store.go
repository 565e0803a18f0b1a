package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	"PendlePulse/pkg/postgres"
)

const pgSnapshotColumns = `id, market_id, timestamp, raw_payload, pt_price, sy_price, tvl`

// PGSnapshotStore implements repository.SnapshotStore using PostgreSQL.
type PGSnapshotStore struct {
	pool *postgres.Pool
	now  func() time.Time
}

// NewPGSnapshotStore creates a new PGSnapshotStore. The schema is applied by migrations.
func NewPGSnapshotStore(pool *postgres.Pool) *PGSnapshotStore {
	return &PGSnapshotStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Compile-time interface check.
var _ domrepo.SnapshotStore = (*PGSnapshotStore)(nil)

// Append inserts a snapshot and returns it with the generated id.
func (s *PGSnapshotStore) Append(ctx context.Context, in *models.SnapshotInput) (*models.Snapshot, error) {
	if in == nil || in.MarketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	snap := newSnapshot(in, s.now)
	// TIMESTAMPTZ keeps microseconds.
	snap.Timestamp = snap.Timestamp.Truncate(time.Microsecond)

	query := `
		INSERT INTO market_snapshots (market_id, timestamp, raw_payload, pt_price, sy_price, tvl)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		snap.MarketID,
		snap.Timestamp,
		snap.RawPayload,
		snap.PTPrice,
		snap.SYPrice,
		snap.TVL,
	).Scan(&snap.ID)
	if err != nil {
		return nil, domrepo.NewStorageError("append", err)
	}
	return snap, nil
}

// QueryRange returns snapshots with timestamp >= since, ascending.
func (s *PGSnapshotStore) QueryRange(ctx context.Context, marketID string, since time.Time) ([]*models.Snapshot, error) {
	query := `
		SELECT ` + pgSnapshotColumns + `
		FROM market_snapshots
		WHERE market_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, marketID, since.UTC())
	if err != nil {
		return nil, domrepo.NewStorageError("query_range", err)
	}
	return collectSnapshots(rows, "query_range")
}

// QueryByMarket returns the newest limit snapshots, descending.
func (s *PGSnapshotStore) QueryByMarket(ctx context.Context, marketID string, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		return []*models.Snapshot{}, nil
	}
	query := `
		SELECT ` + pgSnapshotColumns + `
		FROM market_snapshots
		WHERE market_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, marketID, limit)
	if err != nil {
		return nil, domrepo.NewStorageError("query_by_market", err)
	}
	return collectSnapshots(rows, "query_by_market")
}

// AllMarketIDs returns distinct market ids, ascending.
func (s *PGSnapshotStore) AllMarketIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT market_id FROM market_snapshots ORDER BY market_id`)
	if err != nil {
		return nil, domrepo.NewStorageError("all_market_ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domrepo.NewStorageError("all_market_ids", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Count returns the number of stored snapshots.
func (s *PGSnapshotStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM market_snapshots`).Scan(&n); err != nil {
		return 0, domrepo.NewStorageError("count", err)
	}
	return n, nil
}

// Latest resolves the newest snapshot per market with DISTINCT ON.
func (s *PGSnapshotStore) Latest(ctx context.Context, marketIDs ...string) (map[string]*models.Snapshot, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(marketIDs) == 0 {
		rows, err = s.pool.Query(ctx, `
			SELECT DISTINCT ON (market_id) `+pgSnapshotColumns+`
			FROM market_snapshots
			ORDER BY market_id, timestamp DESC, id DESC
		`)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT DISTINCT ON (market_id) `+pgSnapshotColumns+`
			FROM market_snapshots
			WHERE market_id = ANY($1)
			ORDER BY market_id, timestamp DESC, id DESC
		`, marketIDs)
	}
	if err != nil {
		return nil, domrepo.NewStorageError("latest", err)
	}
	list, err := collectSnapshots(rows, "latest")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Snapshot, len(list))
	for _, snap := range list {
		out[snap.MarketID] = snap
	}
	return out, nil
}

func (s *PGSnapshotStore) Health(ctx context.Context) error {
	if err := s.pool.Health(ctx); err != nil {
		return domrepo.NewStorageError("health", err)
	}
	return nil
}

func (s *PGSnapshotStore) Close() error {
	s.pool.Close()
	return nil
}

func collectSnapshots(rows pgx.Rows, op string) ([]*models.Snapshot, error) {
	defer rows.Close()

	result := []*models.Snapshot{}
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.MarketID,
			&snap.Timestamp,
			&snap.RawPayload,
			&snap.PTPrice,
			&snap.SYPrice,
			&snap.TVL,
		); err != nil {
			return nil, domrepo.NewStorageError(op, err)
		}
		snap.Timestamp = snap.Timestamp.UTC()
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, domrepo.NewStorageError(op, err)
	}
	return result, nil
}
