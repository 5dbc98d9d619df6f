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
	"errors"
	"fmt"

	"cloud.google.com/go/logging"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	numeric "github.com/jackc/pgtype/ext/shopspring-numeric"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

const table = "daily_stock_prices"

var columns = []string{"date", "ticker", "open", "high", "low", "close", "volume"}

// ErrConflict reports a bar whose (ticker, date) is already stored.
var ErrConflict = errors.New("bar already exists for ticker and date")

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Row is the wire form of one daily_stock_prices row.
type Row struct {
	Date   pgtype.Date
	Ticker pgtype.Text
	Open   numeric.Numeric
	High   numeric.Numeric
	Low    numeric.Numeric
	Close  numeric.Numeric
	Volume pgtype.Int8
}

func TransformBar(b model.Bar) (out Row) {
	_ = out.Date.Set(b.Date)
	_ = out.Ticker.Set(b.Ticker)
	_ = out.Open.Set(b.Open)
	_ = out.High.Set(b.High)
	_ = out.Low.Set(b.Low)
	_ = out.Close.Set(b.Close)
	_ = out.Volume.Set(b.Volume)
	return
}

func (r Row) Bar() model.Bar {
	return model.Bar{
		Ticker: r.Ticker.String,
		Date:   model.TradingDay(r.Date.Time),
		Open:   r.Open.Decimal,
		High:   r.High.Decimal,
		Low:    r.Low.Decimal,
		Close:  r.Close.Decimal,
		Volume: r.Volume.Int,
	}
}

func (r Row) values() []interface{} {
	return []interface{}{r.Date, r.Ticker, r.Open, r.High, r.Low, r.Close, r.Volume}
}

// Store is the price table behind a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool that decodes NUMERIC into decimal.Decimal.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		conn.ConnInfo().RegisterDataType(pgtype.DataType{
			Value: &numeric.Numeric{},
			Name:  "numeric",
			OID:   pgtype.NumericOID,
		})
		return nil
	}

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection pool: %w", err)
	}
	return pool, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

const insertNewSQL = `INSERT INTO daily_stock_prices (date, ticker, open, high, low, close, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT ON CONSTRAINT daily_stock_prices_ticker_date_key DO NOTHING`

// InsertNew appends bars in one transaction. Bars whose (ticker, date)
// already exists are skipped and existing rows are never modified. It
// returns the number of rows actually inserted.
func (s *Store) InsertNew(ctx context.Context, bars []model.Bar) (inserted int64, err error) {
	if len(bars) == 0 {
		return 0, nil
	}

	ctx = util.WithLoggerValue(ctx, "action", "load")
	ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
	defer cancel()

	err = util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		inserted = 0

		b := &pgx.Batch{}
		for _, bar := range bars {
			b.Queue(insertNewSQL, TransformBar(bar).values()...)
		}

		br := tx.SendBatch(ctx, b)
		for _, bar := range bars {
			ct, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert bar %s/%s: %w", bar.Ticker, bar.Date.Format("2006-01-02"), err)
			}
			inserted += ct.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", err)
		}

		util.Logf(ctx, logging.Debug, "inserted %d of %d bars into %s", inserted, len(bars), table)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
