package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	pkgch "PendlePulse/pkg/clickhouse"
	applogger "PendlePulse/pkg/logger"
)

// CHSnapshotStore implements SnapshotStore backed by ClickHouse.
// Ids come from an in-process counter seeded from max(id), so a single writer per table is assumed.
type CHSnapshotStore struct {
	ch     *pkgch.Client
	db     *sql.DB
	table  string
	lastID atomic.Int64
	now    func() time.Time
	l      *applogger.Logger
}

// NewCHSnapshotStore creates the store and seeds the id counter.
func NewCHSnapshotStore(ctx context.Context, ch *pkgch.Client, database string) (*CHSnapshotStore, error) {
	s := &CHSnapshotStore{
		ch:    ch,
		db:    ch.DB(),
		table: database + ".market_snapshots",
		now:   func() time.Time { return time.Now().UTC() },
	}
	var maxID uint64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT max(id) FROM %s", s.table)).Scan(&maxID); err != nil {
		return nil, domrepo.NewStorageError("seed_id", err)
	}
	s.lastID.Store(int64(maxID))
	return s, nil
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.SnapshotStore = (*CHSnapshotStore)(nil)

func (s *CHSnapshotStore) Append(ctx context.Context, in *models.SnapshotInput) (*models.Snapshot, error) {
	if in == nil || in.MarketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	snap := newSnapshot(in, s.now)
	snap.Timestamp = snap.Timestamp.Truncate(time.Microsecond)
	snap.ID = s.lastID.Add(1)

	q := fmt.Sprintf("INSERT INTO %s (id, market_id, timestamp, raw_payload, pt_price, sy_price, tvl) VALUES (?, ?, toDateTime64(?, 6, 'UTC'), ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		uint64(snap.ID),
		snap.MarketID,
		chTime(snap.Timestamp),
		string(snap.RawPayload),
		nullable(snap.PTPrice),
		nullable(snap.SYPrice),
		nullable(snap.TVL),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append error",
				applogger.String("table", s.table),
				applogger.String("market_id", snap.MarketID),
				applogger.Error(err),
			)
		}
		return nil, domrepo.NewStorageError("append", err)
	}
	return snap, nil
}

func (s *CHSnapshotStore) QueryRange(ctx context.Context, marketID string, since time.Time) ([]*models.Snapshot, error) {
	const qtpl = `
        SELECT id, market_id, timestamp, raw_payload, pt_price, sy_price, tvl
        FROM %s
        WHERE market_id = ? AND timestamp >= toDateTime64(?, 6, 'UTC')
        ORDER BY timestamp ASC, id ASC
    `
	return s.query(ctx, "query_range", fmt.Sprintf(qtpl, s.table), marketID, chTime(since))
}

func (s *CHSnapshotStore) QueryByMarket(ctx context.Context, marketID string, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		return []*models.Snapshot{}, nil
	}
	const qtpl = `
        SELECT id, market_id, timestamp, raw_payload, pt_price, sy_price, tvl
        FROM %s
        WHERE market_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?
    `
	return s.query(ctx, "query_by_market", fmt.Sprintf(qtpl, s.table), marketID, limit)
}

func (s *CHSnapshotStore) AllMarketIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT market_id FROM %s ORDER BY market_id", s.table))
	if err != nil {
		return nil, domrepo.NewStorageError("all_market_ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domrepo.NewStorageError("all_market_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domrepo.NewStorageError("all_market_ids", err)
	}
	return ids, nil
}

func (s *CHSnapshotStore) Count(ctx context.Context) (int64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count() FROM %s", s.table)).Scan(&n); err != nil {
		return 0, domrepo.NewStorageError("count", err)
	}
	return int64(n), nil
}

// Latest relies on LIMIT 1 BY to keep the first row per market in (timestamp, id) descending order.
func (s *CHSnapshotStore) Latest(ctx context.Context, marketIDs ...string) (map[string]*models.Snapshot, error) {
	where := ""
	args := make([]any, 0, len(marketIDs))
	if len(marketIDs) > 0 {
		marks := make([]string, len(marketIDs))
		for i, id := range marketIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = "WHERE market_id IN (" + strings.Join(marks, ", ") + ")"
	}
	q := fmt.Sprintf(`
        SELECT id, market_id, timestamp, raw_payload, pt_price, sy_price, tvl
        FROM %s
        %s
        ORDER BY market_id, timestamp DESC, id DESC
        LIMIT 1 BY market_id
    `, s.table, where)
	list, err := s.query(ctx, "latest", q, args...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Snapshot, len(list))
	for _, snap := range list {
		out[snap.MarketID] = snap
	}
	return out, nil
}

func (s *CHSnapshotStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domrepo.NewStorageError("health", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *CHSnapshotStore) Close() error {
	return s.ch.Close()
}

func (s *CHSnapshotStore) query(ctx context.Context, op, q string, args ...any) ([]*models.Snapshot, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query error",
				applogger.String("op", op),
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, domrepo.NewStorageError(op, err)
	}
	defer rows.Close()

	out := []*models.Snapshot{}
	for rows.Next() {
		var (
			snap    models.Snapshot
			id      uint64
			payload string
		)
		if err := rows.Scan(&id, &snap.MarketID, &snap.Timestamp, &payload, &snap.PTPrice, &snap.SYPrice, &snap.TVL); err != nil {
			return nil, domrepo.NewStorageError(op, fmt.Errorf("scan snapshot: %w", err))
		}
		snap.ID = int64(id)
		snap.Timestamp = snap.Timestamp.UTC()
		if payload != "" {
			snap.RawPayload = []byte(payload)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, domrepo.NewStorageError(op, err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse query ok",
			applogger.String("op", op),
			applogger.String("table", s.table),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// chTime renders t for toDateTime64(?, 6). A time.Time bound positionally loses sub-second precision.
func chTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000")
}

// nullable maps an absent numeric to SQL NULL.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
