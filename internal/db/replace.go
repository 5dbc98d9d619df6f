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

	"cloud.google.com/go/logging"
	"github.com/jackc/pgx/v4"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type ReplaceResult struct {
	Deleted  int64
	Loaded   map[string]int64
	Rejected map[string]error
}

// Replace deletes every stored bar and loads series in its place, all in one
// transaction. A series that conflicts with itself is rolled back to its own
// savepoint and reported in Rejected. Any other failure rolls back everything,
// including the delete.
func (s *Store) Replace(ctx context.Context, series []model.Series) (ret ReplaceResult, err error) {
	ctx = util.WithLoggerValue(ctx, "action", "replace")
	ctx, cancel := context.WithTimeout(ctx, util.LongReqTimeout)
	defer cancel()

	err = util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		ret = ReplaceResult{
			Loaded:   make(map[string]int64, len(series)),
			Rejected: make(map[string]error),
		}

		ct, err := tx.Exec(ctx, `DELETE FROM daily_stock_prices`)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
		ret.Deleted = ct.RowsAffected()
		util.Logf(ctx, logging.Info, "deleted %d rows from %s", ret.Deleted, table)

		for ndx, ser := range series {
			if len(ser.Bars) == 0 {
				continue
			}

			rows := make([]Row, len(ser.Bars))
			for i, b := range ser.Bars {
				b.Ticker = ser.Symbol
				rows[i] = TransformBar(b)
			}

			var n int64
			op := func() (err error) {
				n, err = tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
					return rows[i].values(), nil
				}))
				return err
			}

			err := util.WrapWithSavePoint(ctx, tx, op, fmt.Sprintf("series_%d", ndx))()
			switch {
			case err == nil:
				ret.Loaded[ser.Symbol] = n
				util.Logf(ctx, logging.Debug, "copied %d bars for %s", n, ser.Symbol)
			case IsUniqueViolation(err):
				ret.Rejected[ser.Symbol] = fmt.Errorf("%w: %s: %v", ErrConflict, ser.Symbol, err)
				util.Logf(ctx, logging.Warning, "rejected series %s: %v", ser.Symbol, err)
			default:
				return fmt.Errorf("failed to copy series %s: %w", ser.Symbol, err)
			}
		}

		return nil
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	return ret, nil
}
