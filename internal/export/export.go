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

// Package export writes stored series to files.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/logging"
	"github.com/parquet-go/parquet-go"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type Saver interface {
	Save(bars []model.Bar, path string) error
	Extension() string
}

// NewSaver returns nil for an unknown format.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// Row is the flat file form of a bar.
type Row struct {
	Date   string  `json:"date" parquet:"date"`
	Ticker string  `json:"ticker" parquet:"ticker"`
	Open   float64 `json:"open" parquet:"open"`
	High   float64 `json:"high" parquet:"high"`
	Low    float64 `json:"low" parquet:"low"`
	Close  float64 `json:"close" parquet:"close"`
	Volume int64   `json:"volume" parquet:"volume"`
}

func rows(bars []model.Bar) []Row {
	ret := make([]Row, len(bars))
	for i, b := range bars {
		ret[i] = Row{
			Date:   b.Date.Format("2006-01-02"),
			Ticker: b.Ticker,
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			Volume: b.Volume,
		}
	}
	return ret
}

type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "ticker", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Date.Format("2006-01-02"),
			b.Ticker,
			b.Open.StringFixed(2),
			b.High.StringFixed(2),
			b.Low.StringFixed(2),
			b.Close.StringFixed(2),
			strconv.FormatInt(b.Volume, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows(bars)); err != nil {
		return err
	}
	return f.Close()
}

type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []model.Bar, path string) error {
	return parquet.WriteFile(path, rows(bars))
}

// Series is the read surface Export needs.
type Series interface {
	ListTickers(ctx context.Context) (model.Catalog, error)
	Series(ctx context.Context, symbol string) ([]model.Bar, error)
}

// Export writes one file per stored ticker into dir, named after the
// ticker's display name, and returns the number of bars written per symbol.
func Export(ctx context.Context, src Series, s Saver, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	cat, err := src.ListTickers(ctx)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]int, len(cat))
	for _, e := range cat {
		bars, err := src.Series(ctx, e.Symbol)
		if err != nil {
			return ret, err
		}
		for i := range bars {
			bars[i].Ticker = e.Symbol
		}

		path := filepath.Join(dir, e.Display+"."+s.Extension())
		if err := s.Save(bars, path); err != nil {
			return ret, fmt.Errorf("failed to export %s to %s: %w", e.Symbol, path, err)
		}
		util.Logf(ctx, logging.Info, "exported %d bars of %s to %s", len(bars), e.Symbol, path)
		ret[e.Symbol] = len(bars)
	}
	return ret, nil
}
