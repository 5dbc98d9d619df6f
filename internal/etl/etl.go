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

// Package etl runs the write cycles that move provider bars into the price
// store.
package etl

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/idxstocks/internal/db"
	"github.com/ajjensen13/idxstocks/internal/extract"
	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/transform"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type Config struct {
	Tickers         []string
	LookbackDays    int
	BackfillStart   time.Time
	RequestInterval time.Duration
	Location        *time.Location
}

// Writer is the write side of the price store.
type Writer interface {
	InsertNew(ctx context.Context, bars []model.Bar) (int64, error)
	Replace(ctx context.Context, series []model.Series) (db.ReplaceResult, error)
}

// eachTicker calls f once per configured ticker, waiting cfg.RequestInterval
// between calls.
func eachTicker(ctx context.Context, cfg Config, f func(ctx context.Context, symbol string)) error {
	var throttle <-chan time.Time
	if cfg.RequestInterval > 0 {
		ticker := time.NewTicker(cfg.RequestInterval)
		defer ticker.Stop()
		throttle = ticker.C
	}

	for ndx, symbol := range cfg.Tickers {
		if ndx > 0 && throttle != nil {
			select {
			case <-ctx.Done():
				return fmt.Errorf("aborting before stock %q: %w", symbol, ctx.Err())
			case <-throttle:
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("aborting before stock %q: %w", symbol, err)
		}

		f(util.WithLoggerValue(ctx, "symbol", symbol), symbol)
	}
	return nil
}

func fetch(ctx context.Context, cfg Config, src extract.Source, symbol string, from, to time.Time) ([]model.Bar, error) {
	util.Logf(ctx, logging.Debug, "requesting %q candles from %s (%s .. %s)", symbol, src.Name(), from.Format("2006-01-02"), to.Format("2006-01-02"))

	c, err := src.DailyCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to extract stock candles %q: %w", symbol, err)
	}

	bars, err := transform.Bars(symbol, c, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to transform stock candles %q: %w", symbol, err)
	}
	return bars, nil
}
