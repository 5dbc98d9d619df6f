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

package extract

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/idxstocks/internal/util"
)

// CandleFunc is the shape of finnhub.DefaultApiService.StockCandles with the
// optional arguments bound.
type CandleFunc func(ctx context.Context, symbol, resolution string, from, to int64) (finnhub.StockCandles, *http.Response, error)

// NewCandleFunc binds client.StockCandles.
func NewCandleFunc(client *finnhub.DefaultApiService) CandleFunc {
	return func(ctx context.Context, symbol, resolution string, from, to int64) (finnhub.StockCandles, *http.Response, error) {
		return client.StockCandles(ctx, symbol, resolution, from, to, nil)
	}
}

type Finnhub struct {
	Candles    CandleFunc
	APIKey     string
	Resolution string
}

func (f *Finnhub) Name() string { return "finnhub" }

func (f *Finnhub) DailyCandles(ctx context.Context, symbol string, from, to time.Time) (Candles, error) {
	resolution := f.Resolution
	if resolution == "" {
		resolution = "D"
	}

	ctx = context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: f.APIKey})
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	sc, resp, err := f.Candles(ctx, symbol, resolution, from.Unix(), to.Unix())
	if err != nil {
		return Candles{}, handleErr(fmt.Sprintf("error while requesting candles for stock %q", symbol), resp, err)
	}

	if sc.S == "no_data" {
		return Candles{}, nil
	}
	if sc.S != "" && sc.S != "ok" {
		return Candles{}, fmt.Errorf("unexpected finnhub candle status %q for stock %q", sc.S, symbol)
	}

	return Candles{
		Timestamps: sc.T,
		Open:       widen(sc.O),
		High:       widen(sc.H),
		Low:        widen(sc.L),
		Close:      widen(sc.C),
		Volume:     widen(sc.V),
	}, nil
}

// widen converts through the shortest decimal form so 1234.56 stays 1234.56
// instead of picking up float32 noise.
func widen(in []float32) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = decimal.NewFromFloat32(v).InexactFloat64()
	}
	return out
}
