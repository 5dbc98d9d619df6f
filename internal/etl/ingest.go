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
	"github.com/ajjensen13/idxstocks/internal/transform"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type Outcome int

const (
	// OutcomeNoop means no ticker produced a bar and nothing was written.
	OutcomeNoop Outcome = iota
	OutcomeLoaded
	// OutcomeAlreadyCurrent means every fetched bar was already stored.
	OutcomeAlreadyCurrent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeAlreadyCurrent:
		return "already current"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// IngestReport describes one cycle. Fetched lists the tickers whose latest
// bar was handed to the store; Inserted and Skipped say how many of those
// bars were new.
type IngestReport struct {
	Outcome  Outcome
	Inserted int64
	Skipped  int64
	Fetched  []string
	NoData   []string
	Failed   map[string]error
}

const defaultLookbackDays = 30

// Ingest appends the most recent bar of every configured ticker. Tickers
// that fail or return nothing are recorded and skipped. The only error
// returned is a failed store write or a cancelled ctx.
func Ingest(ctx context.Context, cfg Config, src extract.Source, w Writer, now time.Time) (IngestReport, error) {
	ctx = util.WithLoggerValue(ctx, "action", "ingest")

	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}
	to := now
	from := now.AddDate(0, 0, -lookback)

	ret := IngestReport{Failed: map[string]error{}}
	batch := make([]model.Bar, 0, len(cfg.Tickers))

	err := eachTicker(ctx, cfg, func(ctx context.Context, symbol string) {
		bars, err := fetch(ctx, cfg, src, symbol, from, to)
		if err != nil {
			util.Logf(ctx, logging.Warning, "skipping stock %q: %v", symbol, err)
			ret.Failed[symbol] = err
			return
		}

		latest, ok := transform.Latest(bars)
		if !ok {
			util.Logf(ctx, logging.Info, "no data for stock %q", symbol)
			ret.NoData = append(ret.NoData, symbol)
			return
		}

		batch = append(batch, latest)
		ret.Fetched = append(ret.Fetched, symbol)
	})
	if err != nil {
		return ret, err
	}

	if len(batch) == 0 {
		util.Logf(ctx, logging.Info, "no bars fetched, nothing to load")
		ret.Outcome = OutcomeNoop
		return ret, nil
	}

	n, err := w.InsertNew(ctx, batch)
	if err != nil {
		return ret, fmt.Errorf("failed to load %d bars: %w", len(batch), err)
	}

	ret.Inserted = n
	ret.Skipped = int64(len(batch)) - n
	if n == 0 {
		ret.Outcome = OutcomeAlreadyCurrent
		util.Logf(ctx, logging.Info, "price store already up to date (%d bars already present)", len(batch))
		return ret, nil
	}

	ret.Outcome = OutcomeLoaded
	util.Logf(ctx, logging.Info, "loaded %d new bars, %d already present", ret.Inserted, ret.Skipped)
	return ret, nil
}
