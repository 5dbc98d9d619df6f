/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package query derives the ticker catalog, series and KPIs shown by the
// dashboard from the price store.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

const (
	DefaultCatalogTTL     = time.Hour
	DefaultSeriesTTL      = 5 * time.Minute
	DefaultExchangeSuffix = ".JK"
)

// Reader is the read side of the price store.
type Reader interface {
	DistinctTickers(ctx context.Context) ([]string, error)
	Series(ctx context.Context, ticker string) ([]model.Bar, error)
	Summary(ctx context.Context) (model.Summary, error)
}

type Config struct {
	CatalogTTL     time.Duration
	SeriesTTL      time.Duration
	ExchangeSuffix string
}

// Aggregator serves reads through a TTL cache. Results may be stale by up
// to the configured TTL; failed reads are not cached.
type Aggregator struct {
	r     Reader
	cfg   Config
	cache *cache.Cache
	group singleflight.Group
}

func New(r Reader, cfg Config) *Aggregator {
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = DefaultCatalogTTL
	}
	if cfg.SeriesTTL <= 0 {
		cfg.SeriesTTL = DefaultSeriesTTL
	}
	cleanup := cfg.SeriesTTL
	if cfg.CatalogTTL < cleanup {
		cleanup = cfg.CatalogTTL
	}
	return &Aggregator{
		r:     r,
		cfg:   cfg,
		cache: cache.New(cfg.SeriesTTL, cleanup),
	}
}

const (
	catalogKey   = "catalog"
	summaryKey   = "summary"
	seriesPrefix = "series:"
)

// cached returns key from the cache or loads it once for every concurrent
// caller. The load is detached from the caller that started it, so a caller
// that goes away only abandons its own wait.
func (a *Aggregator) cached(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := a.cache.Get(key); ok {
		return v, nil
	}
	ch := a.group.DoChan(key, func() (interface{}, error) {
		if v, ok := a.cache.Get(key); ok {
			return v, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), util.ShortReqTimeout)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		a.cache.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// ListTickers returns every stored ticker with its display name, ordered by
// canonical symbol.
func (a *Aggregator) ListTickers(ctx context.Context) (model.Catalog, error) {
	v, err := a.cached(ctx, catalogKey, a.cfg.CatalogTTL, func(ctx context.Context) (interface{}, error) {
		tickers, err := a.r.DistinctTickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tickers: %w", err)
		}
		return BuildCatalog(ctx, tickers, a.cfg.ExchangeSuffix), nil
	})
	if err != nil {
		return nil, err
	}
	return append(model.Catalog(nil), v.(model.Catalog)...), nil
}

// Series returns symbol's bars ascending by date, or an empty slice when the
// symbol is not stored.
func (a *Aggregator) Series(ctx context.Context, symbol string) ([]model.Bar, error) {
	v, err := a.cached(ctx, seriesPrefix+symbol, a.cfg.SeriesTTL, func(ctx context.Context) (interface{}, error) {
		bars, err := a.r.Series(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to read series %q: %w", symbol, err)
		}
		if bars == nil {
			bars = []model.Bar{}
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]model.Bar{}, v.([]model.Bar)...), nil
}

func (a *Aggregator) Summary(ctx context.Context) (model.Summary, error) {
	v, err := a.cached(ctx, summaryKey, a.cfg.CatalogTTL, func(ctx context.Context) (interface{}, error) {
		s, err := a.r.Summary(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize price store: %w", err)
		}
		return s, nil
	})
	if err != nil {
		return model.Summary{}, err
	}
	return v.(model.Summary), nil
}

// Invalidate drops every cached result.
func (a *Aggregator) Invalidate() {
	a.cache.Flush()
}

// DisplayName strips the exchange suffix from symbol.
func DisplayName(symbol, suffix string) string {
	if suffix == "" {
		return symbol
	}
	if d := strings.TrimSuffix(symbol, suffix); d != "" {
		return d
	}
	return symbol
}

// BuildCatalog maps tickers to display names, sorted by canonical symbol.
// When two symbols share a display name the later one keeps its canonical
// symbol as display name so the mapping stays one to one.
func BuildCatalog(ctx context.Context, tickers []string, suffix string) model.Catalog {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)

	ret := make(model.Catalog, 0, len(sorted))
	taken := make(map[string]string, len(sorted))
	for _, symbol := range sorted {
		display := DisplayName(symbol, suffix)
		if other, ok := taken[display]; ok {
			util.Logf(ctx, logging.Warning, "display name %q of %q collides with %q, using the canonical symbol", display, symbol, other)
			display = symbol
		}
		taken[display] = symbol
		ret = append(ret, model.CatalogEntry{Display: display, Symbol: symbol})
	}
	return ret
}
