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

package etl

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/idxstocks/internal/extract"
	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type BackfillReport struct {
	Deleted int64
	Loaded  map[string]int64
	NoData  []string
	Failed  map[string]error
}

func (r BackfillReport) Rows() (n int64) {
	for _, v := range r.Loaded {
		n += v
	}
	return
}

// Backfill replaces the store's contents with the history from
// cfg.BackfillStart to now. The delete happens even when no ticker returns
// data.
func Backfill(ctx context.Context, cfg Config, src extract.Source, w Writer, now time.Time) (BackfillReport, error) {
	ctx = util.WithLoggerValue(ctx, "action", "backfill")

	if cfg.BackfillStart.IsZero() {
		return BackfillReport{}, fmt.Errorf("backfill start date is not set")
	}
	if now.Before(cfg.BackfillStart) {
		return BackfillReport{}, fmt.Errorf("backfill start date %s is in the future", cfg.BackfillStart.Format("2006-01-02"))
	}

	ret := BackfillReport{Failed: map[string]error{}}
	series := make([]model.Series, 0, len(cfg.Tickers))

	err := eachTicker(ctx, cfg, func(ctx context.Context, symbol string) {
		bars, err := fetch(ctx, cfg, src, symbol, cfg.BackfillStart, now)
		if err != nil {
			util.Logf(ctx, logging.Warning, "skipping stock %q: %v", symbol, err)
			ret.Failed[symbol] = err
			return
		}
		if len(bars) == 0 {
			util.Logf(ctx, logging.Info, "no data for stock %q", symbol)
			ret.NoData = append(ret.NoData, symbol)
			return
		}

		util.Logf(ctx, logging.Debug, "fetched %d bars for stock %q", len(bars), symbol)
		series = append(series, model.Series{Symbol: symbol, Bars: bars})
	})
	if err != nil {
		return ret, err
	}

	res, err := w.Replace(ctx, series)
	if err != nil {
		return ret, fmt.Errorf("failed to replace price history: %w", err)
	}

	ret.Deleted = res.Deleted
	ret.Loaded = res.Loaded
	for symbol, err := range res.Rejected {
		ret.Failed[symbol] = err
	}

	util.Logf(ctx, logging.Info, "backfill removed %d rows and loaded %d rows for %d stocks", ret.Deleted, ret.Rows(), len(ret.Loaded))
	return ret, nil
}
