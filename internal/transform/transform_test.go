package transform

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/idxstocks/internal/extract"
)

func jakarta(t *testing.T) *time.Location {
	t.Helper()
	tz, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return tz
}

func TestPrice(t *testing.T) {
	cases := map[float64]string{
		1234.5678: "1234.57",
		1234.5649: "1234.56",
		9775:      "9775",
		0.005:     "0.01",
		-1.005:    "-1.01",
	}
	for in, want := range cases {
		assert.True(t, decimal.RequireFromString(want).Equal(Price(in)), "Price(%v) = %s, want %s", in, Price(in), want)
	}
}

func TestBars(t *testing.T) {
	// 2025-01-02 09:00 WIB and 2025-01-03 09:00 WIB, given out of order
	in := extract.Candles{
		Timestamps: []int64{1735869600, 1735783200},
		Open:       []float64{9800, 9700.123},
		High:       []float64{9900, 9800},
		Low:        []float64{9750, 9650},
		Close:      []float64{9850, 1234.5678},
		Volume:     []float64{2000.6, 1000},
	}

	bars, err := Bars("BBCA.JK", in, jakarta(t))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, "BBCA.JK", bars[0].Ticker)
	assert.Equal(t, "1234.57", bars[0].Close.StringFixed(2))
	assert.Equal(t, "9700.12", bars[0].Open.StringFixed(2))
	assert.Equal(t, int64(2001), bars[1].Volume)
}

func TestBarsUsesLocalCalendarDay(t *testing.T) {
	// 2025-01-02 18:00 UTC is already 2025-01-03 in Jakarta
	in := extract.Candles{
		Timestamps: []int64{1735840800},
		Open:       []float64{1}, High: []float64{1}, Low: []float64{1}, Close: []float64{1}, Volume: []float64{1},
	}

	bars, err := Bars("GOTO.JK", in, jakarta(t))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), bars[0].Date)
}

func TestBarsDuplicateDayKeepsLater(t *testing.T) {
	in := extract.Candles{
		Timestamps: []int64{1735783200, 1735786800},
		Open:       []float64{1, 2}, High: []float64{1, 2}, Low: []float64{1, 2}, Close: []float64{1, 2}, Volume: []float64{1, 2},
	}

	bars, err := Bars("GOTO.JK", in, jakarta(t))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2", bars[0].Close.String())
}

func TestBarsSkipsNonFiniteAndClampsVolume(t *testing.T) {
	in := extract.Candles{
		Timestamps: []int64{1735783200, 1735869600},
		Open:       []float64{math.NaN(), 5},
		High:       []float64{1, 5},
		Low:        []float64{1, 5},
		Close:      []float64{1, 5},
		Volume:     []float64{1, -3},
	}

	bars, err := Bars("GOTO.JK", in, jakarta(t))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(0), bars[0].Volume)
}

func TestBarsColumnLengthMismatch(t *testing.T) {
	in := extract.Candles{
		Timestamps: []int64{1, 2},
		Open:       []float64{1, 2},
		High:       []float64{1, 2},
		Low:        []float64{1},
		Close:      []float64{1, 2},
		Volume:     []float64{1, 2},
	}

	_, err := Bars("BUMI.JK", in, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "len(low)")
	assert.Contains(t, err.Error(), "BUMI.JK")
}

func TestBarsEmpty(t *testing.T) {
	bars, err := Bars("BUMI.JK", extract.Candles{}, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	in := extract.Candles{
		Timestamps: []int64{1735783200, 1735869600},
		Open:       []float64{1, 2}, High: []float64{1, 2}, Low: []float64{1, 2}, Close: []float64{1, 2}, Volume: []float64{1, 2},
	}
	bars, err := Bars("ARCI.JK", in, jakarta(t))
	require.NoError(t, err)

	b, ok := Latest(bars)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), b.Date)
}
