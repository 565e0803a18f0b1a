package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PendlePulse/internal/domain/models"
	"PendlePulse/internal/repository"
	"PendlePulse/internal/services/analytics"
	"PendlePulse/internal/usecase"
	xhttp "PendlePulse/pkg/http"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

type stubSource struct {
	err error
}

func (s stubSource) ActiveMarketIDs(context.Context) ([]string, error) { return nil, s.err }
func (s stubSource) MarketDetail(_ context.Context, id string) ([]byte, error) {
	return []byte(`{"id":"` + id + `"}`), s.err
}
func (s stubSource) ActiveMarketsRaw(context.Context) ([]byte, error) {
	return []byte(`{"data":[]}`), s.err
}
func (s stubSource) YieldRaw(_ context.Context, token string) ([]byte, error) {
	return []byte(`{"token":"` + token + `","impliedApy":0.07}`), s.err
}

func newTestServer(t *testing.T, src stubSource) *echo.Echo {
	t.Helper()
	return newTestServerWithSource(t, usecase.NewSourceUseCase(src))
}

func newTestServerWithSource(t *testing.T, source *usecase.SourceUseCase) *echo.Echo {
	t.Helper()
	store := repository.NewMemorySnapshotStore(repository.WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()
	for i, p := range []float64{1.00, 1.01, 1.02, 1.03} {
		ts := now.Add(-time.Duration(4-i) * time.Hour)
		_, err := store.Append(ctx, &models.SnapshotInput{
			MarketID:   "m1",
			Timestamp:  &ts,
			PTPrice:    fp(p),
			TVL:        fp(100),
			RawPayload: []byte(`{"name":"PT-stETH"}`),
		})
		require.NoError(t, err)
	}
	_, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m2", TVL: fp(500)})
	require.NoError(t, err)

	window := analytics.NewWindow(store, analytics.WithClock(func() time.Time { return now }))
	h := NewMarketsEchoHandler(nil,
		usecase.NewMarketsUseCase(store, window),
		usecase.NewInsightsUseCase(analytics.NewTrendAnalyzer(window), analytics.NewPriceChangeCalculator(window)),
		source,
	)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestMarketsEcho_ListAndTop(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.MarketsListResponse
	decodeData(t, rec, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "PT-stETH", list.Markets[0].DisplayName)

	rec = get(e, "/api/markets/top?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var top models.TopMarketsResponse
	decodeData(t, rec, &top)
	require.Len(t, top.TopMarkets, 1)
	assert.Equal(t, "m2", top.TopMarkets[0].MarketID)

	rec = get(e, "/api/markets/top")
	decodeData(t, rec, &top)
	assert.Len(t, top.TopMarkets, 2)
}

func TestMarketsEcho_Compare(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets/compare")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(e, "/api/markets/compare?market_ids=m1,ghost&market_ids=m2")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.CompareResponse
	decodeData(t, rec, &res)
	require.Len(t, res.Comparison, 2)
	assert.Equal(t, "m1", res.Comparison[0].MarketID)
	assert.Equal(t, "m2", res.Comparison[1].MarketID)
}

func TestMarketsEcho_Detail(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets/m1")
	require.Equal(t, http.StatusOK, rec.Code)
	var d models.MarketDetail
	decodeData(t, rec, &d)
	assert.Equal(t, 1.03, *d.PTPrice)
	assert.JSONEq(t, `{"name":"PT-stETH"}`, string(d.FullData))

	rec = get(e, "/api/markets/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketsEcho_HistoryAndSnapshots(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets/m1/history?hours=2.5")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist models.HistoryResponse
	decodeData(t, rec, &hist)
	assert.Equal(t, 2, hist.DataPoints)

	rec = get(e, "/api/markets/m1/history?hours=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(e, "/api/markets/m1/snapshots?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps models.SnapshotsResponse
	decodeData(t, rec, &snaps)
	require.Equal(t, 2, snaps.Count)
	assert.Equal(t, 1.02, *snaps.Data[0].PTPrice)

	rec = get(e, "/tool/historical/snaps?market_id=m1")
	require.Equal(t, http.StatusOK, rec.Code)
	var legacy models.SnapshotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &legacy))
	assert.Equal(t, 4, legacy.Count)

	rec = get(e, "/tool/historical/snaps")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketsEcho_TrendAndInsight(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets/m1/trend")
	require.Equal(t, http.StatusOK, rec.Code)
	var tr models.TrendInsight
	decodeData(t, rec, &tr)
	assert.Equal(t, models.TrendUp, tr.Direction)
	assert.Equal(t, 72.0, tr.LookbackHours)

	rec = get(e, "/tool/insight?market_id=m2")
	require.Equal(t, http.StatusOK, rec.Code)
	var ins models.InsightResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ins))
	assert.Equal(t, "Not enough historical data yet to generate trend insights.", ins.Insight)
}

func TestMarketsEcho_PriceChangeAndSummary(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/api/markets/m1/price-change?hours=24")
	require.Equal(t, http.StatusOK, rec.Code)
	var pc models.PriceChange
	decodeData(t, rec, &pc)
	assert.Equal(t, 3.0, pc.PTPriceChangePercent)
	assert.Equal(t, models.StatusOK, pc.Status)

	rec = get(e, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.Summary
	decodeData(t, rec, &s)
	assert.Equal(t, 2, s.TotalMarkets)
	assert.Equal(t, int64(5), s.TotalSnapshots)
	assert.Equal(t, 600.0, s.TotalTVL)
}

func TestMarketsEcho_Upstream(t *testing.T) {
	e := newTestServer(t, stubSource{})
	rec := get(e, "/tool/get_market?market_id=0xabc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"0xabc"}`, rec.Body.String())

	rec = get(e, "/tool/get_active_markets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	failing := newTestServer(t, stubSource{err: &xhttp.StatusError{Code: http.StatusServiceUnavailable}})
	rec = get(failing, "/tool/get_active_markets")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMarketsEcho_UpstreamYield(t *testing.T) {
	e := newTestServer(t, stubSource{})
	rec := get(e, "/tool/get_yield?token_id=PT-stETH")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"PT-stETH","impliedApy":0.07}`, rec.Body.String())

	rec = get(e, "/tool/get_yield")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketsEcho_SourceDisabled(t *testing.T) {
	e := newTestServerWithSource(t, nil)
	for _, target := range []string{
		"/tool/get_active_markets",
		"/tool/get_market?market_id=0xabc",
		"/tool/get_yield?token_id=PT-stETH",
	} {
		rec := get(e, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}

	rec := get(e, "/tool/simulate_swap?pool_id=p1&amount=10")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarketsEcho_SimulateSwap(t *testing.T) {
	e := newTestServer(t, stubSource{})

	rec := get(e, "/tool/simulate_swap?pool_id=p1&amount=100")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.SwapEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.SwapEstimate{
		PoolID:      "p1",
		From:        "PT",
		To:          "SY",
		InAmount:    100,
		OutEstimate: 99.8,
		Fee:         0.002,
	}, res)

	rec = get(e, "/tool/simulate_swap?pool_id=p1&amount=5&from_token=SY&to_token=PT")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "SY", res.From)
	assert.Equal(t, "PT", res.To)
	assert.Equal(t, 4.99, res.OutEstimate)

	assert.Equal(t, http.StatusBadRequest, get(e, "/tool/simulate_swap?pool_id=p1").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/tool/simulate_swap?amount=1").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/tool/simulate_swap?pool_id=p1&amount=-3").Code)
}

func TestMarketsEcho_Health(t *testing.T) {
	e := newTestServer(t, stubSource{})
	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, toAppError(errors.New("x")).Status)
	assert.Equal(t, http.StatusNotFound, toAppError(usecaseNotFound()).Status)
}

func usecaseNotFound() error {
	_, err := usecase.NewMarketsUseCase(repository.NewMemorySnapshotStore(), nil).Detail(context.Background(), "x")
	return err
}
