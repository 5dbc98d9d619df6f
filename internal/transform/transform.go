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

package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/idxstocks/internal/extract"
	"github.com/ajjensen13/idxstocks/internal/model"
)

// PricePlaces is the number of fractional digits persisted for prices.
const PricePlaces = 2

// Price rounds half away from zero to PricePlaces.
func Price(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(PricePlaces)
}

// Bars converts provider candles for symbol into bars ordered by date. Each
// timestamp is assigned to its calendar day in tz. When a provider reports
// the same day twice the later row wins.
func Bars(symbol string, in extract.Candles, tz *time.Location) ([]model.Bar, error) {
	l := len(in.Timestamps)
	switch {
	case l == 0:
		return nil, nil
	case len(in.Open) != l:
		return nil, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(in.Open), l, symbol)
	case len(in.High) != l:
		return nil, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(in.High), l, symbol)
	case len(in.Low) != l:
		return nil, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(in.Low), l, symbol)
	case len(in.Close) != l:
		return nil, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(in.Close), l, symbol)
	case len(in.Volume) != l:
		return nil, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(in.Volume), l, symbol)
	}

	if tz == nil {
		tz = time.UTC
	}

	byDay := make(map[time.Time]model.Bar, l)
	for ndx, ts := range in.Timestamps {
		if !finite(in.Open[ndx], in.High[ndx], in.Low[ndx], in.Close[ndx]) {
			continue
		}
		day := model.TradingDay(time.Unix(ts, 0).In(tz))
		byDay[day] = model.Bar{
			Ticker: symbol,
			Date:   day,
			Open:   Price(in.Open[ndx]),
			High:   Price(in.High[ndx]),
			Low:    Price(in.Low[ndx]),
			Close:  Price(in.Close[ndx]),
			Volume: volume(in.Volume[ndx]),
		}
	}

	out := make([]model.Bar, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

// Latest returns the most recent bar of bars.
func Latest(bars []model.Bar) (model.Bar, bool) {
	if len(bars) == 0 {
		return model.Bar{}, false
	}
	ret := bars[0]
	for _, b := range bars[1:] {
		if b.Date.After(ret.Date) {
			ret = b
		}
	}
	return ret, true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func volume(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(v))
}
