package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/query"
)

type fakeSeries map[string][]model.Bar

func (f fakeSeries) ListTickers(ctx context.Context) (model.Catalog, error) {
	var tickers []string
	for k := range f {
		tickers = append(tickers, k)
	}
	return query.BuildCatalog(ctx, tickers, ".JK"), nil
}

func (f fakeSeries) Series(_ context.Context, symbol string) ([]model.Bar, error) {
	return append([]model.Bar(nil), f[symbol]...), nil
}

func sample() fakeSeries {
	d := decimal.RequireFromString
	return fakeSeries{
		"BBCA.JK": {
			{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Open: d("9700"), High: d("9800"), Low: d("9650.5"), Close: d("9775.57"), Volume: 100},
			{Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Open: d("9775"), High: d("9900"), Low: d("9750"), Close: d("9850"), Volume: 200},
		},
		"GOTO.JK": {
			{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Open: d("70"), High: d("71"), Low: d("69"), Close: d("70"), Volume: 5},
		},
	}
}

func TestNewSaver(t *testing.T) {
	assert.IsType(t, CSVSaver{}, NewSaver("CSV"))
	assert.IsType(t, ParquetSaver{}, NewSaver(" parquet "))
	assert.IsType(t, JSONSaver{}, NewSaver("json"))
	assert.Nil(t, NewSaver("xlsx"))
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()

	n, err := Export(context.Background(), sample(), CSVSaver{}, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"BBCA.JK": 2, "GOTO.JK": 1}, n)

	b, err := os.ReadFile(filepath.Join(dir, "BBCA.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,ticker,open,high,low,close,volume\n"+
		"2025-01-02,BBCA.JK,9700.00,9800.00,9650.50,9775.57,100\n"+
		"2025-01-03,BBCA.JK,9775.00,9900.00,9750.00,9850.00,200\n", string(b))
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()

	_, err := Export(context.Background(), sample(), JSONSaver{}, dir)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "GOTO.json"))
	require.NoError(t, err)

	var got []Row
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, []Row{{Date: "2025-01-02", Ticker: "GOTO.JK", Open: 70, High: 71, Low: 69, Close: 70, Volume: 5}}, got)
}

func TestExportParquet(t *testing.T) {
	dir := t.TempDir()

	_, err := Export(context.Background(), sample(), ParquetSaver{}, dir)
	require.NoError(t, err)

	got, err := parquet.ReadFile[Row](filepath.Join(dir, "BBCA.parquet"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 9775.57, got[0].Close)
	assert.Equal(t, "BBCA.JK", got[1].Ticker)
}
