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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ajjensen13/idxstocks/internal/util"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

	// a decade of daily bars is well under 1 MiB
	defaultMaxChartBytes = 8 << 20
)

// Yahoo reads the public v8 chart endpoint. Responses larger than
// MaxBodyBytes are rejected; zero means 8 MiB.
type Yahoo struct {
	Client       *http.Client
	BaseURL      string
	MaxBodyBytes int64
}

func NewYahoo(baseURL string) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &Yahoo{
		Client:  &http.Client{Timeout: util.ShortReqTimeout},
		BaseURL: baseURL,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) DailyCandles(ctx context.Context, symbol string, from, to time.Time) (Candles, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		y.BaseURL, url.PathEscape(symbol), from.Unix(), to.Unix())

	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Candles{}, fmt.Errorf("failed to build chart request for stock %q: %w", symbol, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := y.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Candles{}, fmt.Errorf("error while requesting chart for stock %q: %w", symbol, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Candles{}, handleErr(fmt.Sprintf("error while requesting chart for stock %q", symbol), resp, ErrTooManyRequests)
	}
	defer resp.Body.Close()

	limit := y.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxChartBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Candles{}, fmt.Errorf("failed to read chart response for stock %q: %w", symbol, err)
	}
	if int64(len(body)) > limit {
		return Candles{}, fmt.Errorf("chart response for stock %q exceeds %d bytes", symbol, limit)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Candles{}, fmt.Errorf("unexpected status %d for stock %q (%s)", resp.StatusCode, symbol, truncate(body))
		}
		return Candles{}, fmt.Errorf("failed to decode chart for stock %q: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return Candles{}, fmt.Errorf("chart error for stock %q: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return Candles{}, fmt.Errorf("unexpected status %d for stock %q (%s)", resp.StatusCode, symbol, truncate(body))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return Candles{}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var ret Candles
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			// holidays and halted sessions come back as null rows
			continue
		}
		var v float64
		if p := at(quote.Volume, i); p != nil {
			v = *p
		}
		ret.Timestamps = append(ret.Timestamps, ts)
		ret.Open = append(ret.Open, *o)
		ret.High = append(ret.High, *h)
		ret.Low = append(ret.Low, *l)
		ret.Close = append(ret.Close, *c)
		ret.Volume = append(ret.Volume, v)
	}

	return ret, nil
}

func at(col []*float64, i int) *float64 {
	if i >= len(col) {
		return nil
	}
	return col[i]
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
