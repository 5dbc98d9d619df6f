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
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Source fetches daily candles for one symbol in the window [from, to]. An
// empty Candles value with a nil error means the provider had no data.
type Source interface {
	Name() string
	DailyCandles(ctx context.Context, symbol string, from, to time.Time) (Candles, error)
}

// Candles is provider-neutral columnar OHLCV data. Timestamps are unix
// seconds.
type Candles struct {
	Timestamps []int64
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64
}

func (c Candles) Empty() bool {
	return len(c.Timestamps) == 0
}

var ErrTooManyRequests = errors.New("error: too many requests")

func handleErr(msg string, resp *http.Response, err error) error {
	switch {
	case resp == nil:
		break
	case resp.StatusCode == http.StatusTooManyRequests:
		if resp.Body != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("%s: %w", msg, ErrTooManyRequests)
	case resp.Body != nil:
		defer resp.Body.Close()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			msg = fmt.Sprintf("error while to parsing error response %v. %s", readErr, msg)
			break
		}
		msg = fmt.Sprintf("%s (%s)", msg, body)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
