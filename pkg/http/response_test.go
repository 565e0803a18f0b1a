package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, AppErrorResponse(c, NotFoundError("market m1 not found")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Status  int        `json:"status"`
		Message string     `json:"message"`
		Data    []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", body.Data[0].Code)
	assert.Equal(t, "market m1 not found", body.Data[0].Message)
}

func TestAppErrorResponse_Unknown(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, AppErrorResponse(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAppError_Wrap(t *testing.T) {
	cause := errors.New("upstream down")
	err := BadGatewayError("pendle api").WithError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Equal(t, "pendle api: upstream down", err.Error())
}

func TestHandlers_RegisterRoutes(t *testing.T) {
	e := echo.New()
	Handlers{routeFunc(func(e *echo.Echo) { e.GET("/a", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }) }), nil}.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type routeFunc func(e *echo.Echo)

func (f routeFunc) RegisterRoutes(e *echo.Echo) { f(e) }

type sampleRequest struct {
	MarketID string `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=10000"`
}

func bindQuery(t *testing.T, query string) (*sampleRequest, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &sampleRequest{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateRequest(t *testing.T) {
	req, verr := bindQuery(t, "market_id=m1")
	assert.Nil(t, verr)
	assert.Equal(t, "m1", req.MarketID)
	assert.Equal(t, 200, req.Limit)

	_, verr = bindQuery(t, "limit=5")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "market_id", errs[0].Field)
	assert.Equal(t, "market_id is required", errs[0].Message)

	_, verr = bindQuery(t, "market_id=m1&limit=20000")
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, map[string]interface{}{"max": "10000"}, errs[0].Params)

	_, verr = bindQuery(t, "market_id=m1&limit=abc")
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
