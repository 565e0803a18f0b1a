package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PendlePulse/internal/domain/models"
)

type fakeSource struct {
	ids     []string
	listErr error
	details map[string]string
}

func (s *fakeSource) ActiveMarketIDs(context.Context) ([]string, error) { return s.ids, s.listErr }

func (s *fakeSource) MarketDetail(_ context.Context, id string) ([]byte, error) {
	d, ok := s.details[id]
	if !ok {
		return nil, errors.New("upstream 404")
	}
	return []byte(d), nil
}

func (s *fakeSource) ActiveMarketsRaw(context.Context) ([]byte, error) { return []byte(`[]`), nil }

func (s *fakeSource) YieldRaw(context.Context, string) ([]byte, error) { return []byte(`{}`), nil }

type sinkFunc func(ctx context.Context, in *models.SnapshotInput) error

func (f sinkFunc) Ingest(ctx context.Context, in *models.SnapshotInput) error { return f(ctx, in) }

func TestMarketPoller_PollOnce(t *testing.T) {
	src := &fakeSource{
		ids: []string{"a", "b", "c"},
		details: map[string]string{
			"a": `{"name":"A","ptPrice":0.95,"tvl":100}`,
			"b": `{"name":"B","prices":{"pt":"0.5","sy":1}}`,
		},
	}
	var (
		mu  sync.Mutex
		got = map[string]*models.SnapshotInput{}
	)
	sink := sinkFunc(func(_ context.Context, in *models.SnapshotInput) error {
		mu.Lock()
		defer mu.Unlock()
		got[in.MarketID] = in
		return nil
	})
	p := NewMarketPoller(PollerConfig{Concurrency: 2}, src, sink, nil, nil)

	stats, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Markets)
	assert.Equal(t, int64(2), stats.Stored)
	assert.Equal(t, int64(1), stats.Failed)

	require.Contains(t, got, "a")
	assert.Equal(t, 0.95, *got["a"].PTPrice)
	assert.Equal(t, 100.0, *got["a"].TVL)
	assert.Nil(t, got["a"].SYPrice)
	assert.Equal(t, 0.5, *got["b"].PTPrice)
	assert.Equal(t, 1.0, *got["b"].SYPrice)
	assert.JSONEq(t, `{"name":"B","prices":{"pt":"0.5","sy":1}}`, string(got["b"].RawPayload))
}

func TestMarketPoller_ListFailure(t *testing.T) {
	p := NewMarketPoller(PollerConfig{}, &fakeSource{listErr: errors.New("timeout")}, sinkFunc(func(context.Context, *models.SnapshotInput) error { return nil }), nil, nil)
	_, err := p.PollOnce(context.Background())
	assert.Error(t, err)
}

func TestMarketPoller_StartPollsImmediately(t *testing.T) {
	src := &fakeSource{ids: []string{"a"}, details: map[string]string{"a": `{}`}}
	calls := make(chan string, 10)
	sink := sinkFunc(func(_ context.Context, in *models.SnapshotInput) error {
		calls <- in.MarketID
		return nil
	})
	p := NewMarketPoller(PollerConfig{Interval: time.Hour}, src, sink, nil, nil)
	require.NoError(t, p.Start(context.Background()))

	select {
	case id := <-calls:
		assert.Equal(t, "a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not poll on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Error(t, p.Start(context.Background()))
}
