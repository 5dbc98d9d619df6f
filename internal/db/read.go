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

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgtype"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

// DistinctTickers lists every stored ticker in ascending order.
func (s *Store) DistinctTickers(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ticker FROM daily_stock_prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var ret []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to parse ticker: %w", err)
		}
		ret = append(ret, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tickers: %w", err)
	}
	return ret, nil
}

// Series returns ticker's bars ascending by date. An unknown ticker yields
// an empty slice.
func (s *Store) Series(ctx context.Context, ticker string) ([]model.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT date, ticker, open, high, low, close, volume
		FROM daily_stock_prices
		WHERE ticker = $1
		ORDER BY date ASC`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query series %q: %w", ticker, err)
	}
	defer rows.Close()

	ret := []model.Bar{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Date, &r.Ticker, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, fmt.Errorf("failed to parse series %q: %w", ticker, err)
		}
		ret = append(ret, r.Bar())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series %q: %w", ticker, err)
	}
	return ret, nil
}

// Summary reports the newest stored date, the number of tickers and the
// number of rows.
func (s *Store) Summary(ctx context.Context) (model.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	var last pgtype.Date
	var tickers, rows int64
	err := s.pool.QueryRow(ctx, `SELECT MAX(date), COUNT(DISTINCT ticker), COUNT(*) FROM daily_stock_prices`).Scan(&last, &tickers, &rows)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to query summary: %w", err)
	}

	ret := model.Summary{Tickers: int(tickers), Rows: rows}
	if last.Status == pgtype.Present {
		ret.LastUpdate = model.TradingDay(last.Time)
	}
	return ret, nil
}
