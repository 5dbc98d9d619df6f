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

type KPI struct {
	LatestClose   decimal.Decimal `yaml:"latest_close" json:"latest_close"`
	Change        decimal.Decimal `yaml:"change" json:"change"`
	PercentChange decimal.Decimal `yaml:"percent_change" json:"percent_change"`
	IsUp          bool            `yaml:"is_up" json:"is_up"`
}

type CatalogEntry struct {
	Display string `yaml:"display" json:"display"`
	Symbol  string `yaml:"symbol" json:"symbol"`
}

// Catalog is ordered by Symbol.
type Catalog []CatalogEntry

// Map returns display name -> canonical symbol.
func (c Catalog) Map() map[string]string {
	ret := make(map[string]string, len(c))
	for _, e := range c {
		ret[e.Display] = e.Symbol
	}
	return ret
}

// Resolve accepts either a display name or a canonical symbol.
func (c Catalog) Resolve(name string) (string, bool) {
	for _, e := range c {
		if e.Symbol == name {
			return e.Symbol, true
		}
	}
	for _, e := range c {
		if e.Display == name {
			return e.Symbol, true
		}
	}
	return "", false
}

type Summary struct {
	LastUpdate time.Time `yaml:"last_update" json:"last_update"`
	Tickers    int       `yaml:"tickers" json:"tickers"`
	Rows       int64     `yaml:"rows" json:"rows"`
}
