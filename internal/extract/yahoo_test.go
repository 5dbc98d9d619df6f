package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1735776000,1735862400,1735948800],
"indicators":{"quote":[{"open":[9700.0,null,9800.0],"high":[9800.0,null,9900.0],
"low":[9650.0,null,9750.0],"close":[9775.5678,null,9850.0],"volume":[1000,null,null]}]}}],"error":null}}`

func TestYahooDailyCandles(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	c, err := y.DailyCandles(context.Background(), "BBCA.JK", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BBCA.JK", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "period1=1735689600")
	assert.Equal(t, []int64{1735776000, 1735948800}, c.Timestamps)
	assert.Equal(t, []float64{9775.5678, 9850}, c.Close)
	assert.Equal(t, []float64{1000, 0}, c.Volume)
	assert.Len(t, c.Open, 2)
}

func TestYahooEmptyResultIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":null,"indicators":{"quote":[{}]}}],"error":null}}`))
	}))
	defer srv.Close()

	c, err := NewYahoo(srv.URL).DailyCandles(context.Background(), "MINA.JK", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestYahooChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL).DailyCandles(context.Background(), "NOPE.JK", time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL).DailyCandles(context.Background(), "BBRI.JK", time.Now().AddDate(0, 0, -30), time.Now())
	assert.True(t, errors.Is(err, ErrTooManyRequests))
}

func TestYahooMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL).DailyCandles(context.Background(), "BBRI.JK", time.Now().AddDate(0, 0, -30), time.Now())
	assert.Error(t, err)
}

func TestYahooOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL)
	y.MaxBodyBytes = 64

	_, err := y.DailyCandles(context.Background(), "BBCA.JK", time.Now().AddDate(0, 0, -30), time.Now())
	assert.ErrorContains(t, err, "exceeds 64 bytes")

	y.MaxBodyBytes = int64(len(chartBody))
	c, err := y.DailyCandles(context.Background(), "BBCA.JK", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.Len(t, c.Timestamps, 2)
}
