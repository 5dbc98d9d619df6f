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

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one end-of-day OHLCV observation for a ticker. Date is the trading
// day at midnight UTC.
type Bar struct {
	Ticker string          `yaml:"ticker,omitempty" json:"ticker,omitempty"`
	Date   time.Time       `yaml:"date" json:"date"`
	Open   decimal.Decimal `yaml:"open" json:"open"`
	High   decimal.Decimal `yaml:"high" json:"high"`
	Low    decimal.Decimal `yaml:"low" json:"low"`
	Close  decimal.Decimal `yaml:"close" json:"close"`
	Volume int64           `yaml:"volume" json:"volume"`
}

type Series struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Bars   []Bar  `yaml:"bars" json:"bars"`
}

// TradingDay truncates t to its calendar date in t's location and returns
// that date at midnight UTC.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
