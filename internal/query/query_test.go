package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/idxstocks/internal/model"
)

type fakeReader struct {
	mu      sync.Mutex
	tickers []string
	series  map[string][]model.Bar
	summary model.Summary
	err     error
	calls   map[string]int
}

func (f *fakeReader) count(k string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[k]++
}

func (f *fakeReader) DistinctTickers(context.Context) ([]string, error) {
	f.count("tickers")
	if f.err != nil {
		return nil, f.err
	}
	return f.tickers, nil
}

func (f *fakeReader) Series(_ context.Context, ticker string) ([]model.Bar, error) {
	f.count("series:" + ticker)
	if f.err != nil {
		return nil, f.err
	}
	return f.series[ticker], nil
}

func (f *fakeReader) Summary(context.Context) (model.Summary, error) {
	f.count("summary")
	if f.err != nil {
		return model.Summary{}, f.err
	}
	return f.summary, nil
}

func TestListTickers(t *testing.T) {
	r := &fakeReader{tickers: []string{"GOTO.JK", "BBCA.JK", "ARCI.JK"}}
	a := New(r, Config{ExchangeSuffix: ".JK"})

	cat, err := a.ListTickers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.Catalog{
		{Display: "ARCI", Symbol: "ARCI.JK"},
		{Display: "BBCA", Symbol: "BBCA.JK"},
		{Display: "GOTO", Symbol: "GOTO.JK"},
	}, cat)
	assert.Equal(t, map[string]string{"ARCI": "ARCI.JK", "BBCA": "BBCA.JK", "GOTO": "GOTO.JK"}, cat.Map())

	sym, ok := cat.Resolve("BBCA")
	assert.True(t, ok)
	assert.Equal(t, "BBCA.JK", sym)
	sym, ok = cat.Resolve("GOTO.JK")
	assert.True(t, ok)
	assert.Equal(t, "GOTO.JK", sym)
	_, ok = cat.Resolve("TLKM")
	assert.False(t, ok)
}

func TestBuildCatalogCollision(t *testing.T) {
	cat := BuildCatalog(context.Background(), []string{"BBCA.JK", "BBCA"}, ".JK")

	require.Len(t, cat, 2)
	assert.Equal(t, model.CatalogEntry{Display: "BBCA", Symbol: "BBCA"}, cat[0])
	assert.Equal(t, model.CatalogEntry{Display: "BBCA.JK", Symbol: "BBCA.JK"}, cat[1])
	assert.Len(t, cat.Map(), 2)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "BBCA", DisplayName("BBCA.JK", ".JK"))
	assert.Equal(t, "AAPL", DisplayName("AAPL", ".JK"))
	assert.Equal(t, ".JK", DisplayName(".JK", ".JK"))
	assert.Equal(t, "BBCA.JK", DisplayName("BBCA.JK", ""))
}

func TestSeriesUnknownIsEmpty(t *testing.T) {
	a := New(&fakeReader{}, Config{})

	s, err := a.Series(context.Background(), "NOPE.JK")
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Empty(t, s)
}

func TestCacheServesWithinTTL(t *testing.T) {
	r := &fakeReader{
		tickers: []string{"BBCA.JK"},
		series:  map[string][]model.Bar{"BBCA.JK": closes("1", "2")},
	}
	a := New(r, Config{CatalogTTL: time.Hour, SeriesTTL: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.ListTickers(ctx)
		require.NoError(t, err)
		_, err = a.Series(ctx, "BBCA.JK")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.calls["tickers"])
	assert.Equal(t, 1, r.calls["series:BBCA.JK"])

	a.Invalidate()
	_, err := a.ListTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls["tickers"])
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	r := &fakeReader{series: map[string][]model.Bar{"BBCA.JK": closes("1")}}
	a := New(r, Config{CatalogTTL: time.Hour, SeriesTTL: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := a.Series(ctx, "BBCA.JK")
	require.NoError(t, err)

	r.mu.Lock()
	r.series["BBCA.JK"] = closes("1", "2")
	r.mu.Unlock()

	s, err := a.Series(ctx, "BBCA.JK")
	require.NoError(t, err)
	assert.Len(t, s, 1, "stale value within ttl")

	time.Sleep(40 * time.Millisecond)
	s, err = a.Series(ctx, "BBCA.JK")
	require.NoError(t, err)
	assert.Len(t, s, 2)
}

func TestErrorsAreNotCached(t *testing.T) {
	r := &fakeReader{err: errors.New("connection refused")}
	a := New(r, Config{})
	ctx := context.Background()

	_, err := a.Summary(ctx)
	assert.ErrorContains(t, err, "connection refused")

	r.err = nil
	r.summary = model.Summary{Tickers: 10, Rows: 2000}
	s, err := a.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Tickers)
	assert.Equal(t, 2, r.calls["summary"])
}

func TestCachedResultsAreCopies(t *testing.T) {
	r := &fakeReader{series: map[string][]model.Bar{"BBCA.JK": closes("1", "2")}}
	a := New(r, Config{})
	ctx := context.Background()

	s, err := a.Series(ctx, "BBCA.JK")
	require.NoError(t, err)
	s[0] = model.Bar{Ticker: "mutated"}

	s, err = a.Series(ctx, "BBCA.JK")
	require.NoError(t, err)
	assert.Empty(t, s[0].Ticker)
}

// slowReader blocks Series until release is closed and fails if the context
// it was handed ended in the meantime.
type slowReader struct {
	fakeReader
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *slowReader) Series(ctx context.Context, ticker string) ([]model.Bar, error) {
	s.count("series:" + ticker)
	s.once.Do(func() { close(s.started) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return closes("100", "110"), nil
}

func TestSharedLoadSurvivesCancelledCaller(t *testing.T) {
	r := &slowReader{started: make(chan struct{}), release: make(chan struct{})}
	a := New(r, Config{})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := a.Series(first, "BBCA.JK")
		firstErr <- err
	}()
	<-r.started

	type result struct {
		bars []model.Bar
		err  error
	}
	second := make(chan result, 1)
	go func() {
		bars, err := a.Series(context.Background(), "BBCA.JK")
		second <- result{bars, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(r.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.bars, 2)
	assert.Equal(t, 1, r.calls["series:BBCA.JK"])

	bars, err := a.Series(context.Background(), "BBCA.JK")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}
