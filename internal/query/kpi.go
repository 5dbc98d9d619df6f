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

package query

import (
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/idxstocks/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeKPI derives the day-over-day figures from a series ordered by date.
// An empty series yields the zero KPI. With a single bar the previous close is
// the latest close. A zero previous close yields a zero percent change.
func ComputeKPI(series []model.Bar) model.KPI {
	if len(series) == 0 {
		return model.KPI{}
	}

	latest := series[len(series)-1].Close
	prev := latest
	if len(series) > 1 {
		prev = series[len(series)-2].Close
	}

	change := latest.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Mul(hundred).Div(prev)
	}

	return model.KPI{
		LatestClose:   latest,
		Change:        change,
		PercentChange: pct,
		IsUp:          change.Sign() >= 0,
	}
}

// MovingAverage returns the simple moving average of closes over period
// bars, aligned with series. The first period-1 entries are invalid.
func MovingAverage(series []model.Bar, period int) []decimal.NullDecimal {
	ret := make([]decimal.NullDecimal, len(series))
	if period <= 0 {
		return ret
	}

	n := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, b := range series {
		sum = sum.Add(b.Close)
		if i >= period {
			sum = sum.Sub(series[i-period].Close)
		}
		if i >= period-1 {
			ret[i] = decimal.NewNullDecimal(sum.Div(n).Round(2))
		}
	}
	return ret
}
