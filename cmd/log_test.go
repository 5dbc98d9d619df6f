package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/util"
)

type recordingLogger struct {
	entries []logging.Entry
}

func (r *recordingLogger) Log(e logging.Entry) {
	r.entries = append(r.entries, e)
}

func (r *recordingLogger) messages() []string {
	var ret []string
	for _, e := range r.entries {
		ret = append(ret, e.Payload.(interface{ String() string }).String())
	}
	return ret
}

func TestCronLogger(t *testing.T) {
	lg := &recordingLogger{}
	c := cronLogger{ctx: util.WithLogger(context.Background(), lg)}

	c.Info("schedule", "now", "09:00", "entry", 1)
	c.Error(errors.New("boom"), "panic", "stack")

	require.Len(t, lg.entries, 2)
	assert.Equal(t, logging.Debug, lg.entries[0].Severity)
	assert.Equal(t, logging.Error, lg.entries[1].Severity)
	assert.Equal(t, []string{"schedule now=09:00 entry=1", "panic: boom"}, lg.messages())
}

func TestMigrationLogger(t *testing.T) {
	lg := &recordingLogger{}
	m := migrationLogger{ctx: util.WithLogger(context.Background(), lg), verbose: true}

	m.Printf("1/u create_daily_stock_prices (%s)\n", "12ms")

	assert.True(t, m.Verbose())
	assert.Equal(t, []string{"1/u create_daily_stock_prices (12ms)"}, lg.messages())
}

func TestMigrationOutputPassesLevelFilter(t *testing.T) {
	for _, min := range []logging.Severity{logging.Debug, logging.Info} {
		lg := &recordingLogger{}
		ctx := util.WithLogger(context.Background(), leveledLogger{Logger: lg, min: min})

		migrationLogger{ctx: ctx}.Printf("1/u create_daily_stock_prices (%s)\n", "12ms")
		util.Logf(ctx, logging.Notice, "database is already migrated fully up")

		assert.Equal(t, []string{"1/u create_daily_stock_prices (12ms)", "database is already migrated fully up"}, lg.messages(), "min %v", min)
	}
}

func TestLeveledLogger(t *testing.T) {
	lg := &recordingLogger{}
	l := leveledLogger{Logger: lg, min: logging.Info}

	l.Log(logging.Entry{Severity: logging.Debug, Payload: "dropped"})
	l.Log(logging.Entry{Severity: logging.Default, Payload: "unleveled"})
	l.Log(logging.Entry{Severity: logging.Warning, Payload: "kept"})

	require.Len(t, lg.entries, 2)
	assert.Equal(t, "unleveled", lg.entries[0].Payload)
	assert.Equal(t, "kept", lg.entries[1].Payload)
}

func TestWriteOutput(t *testing.T) {
	kpi := model.KPI{LatestClose: decimal.RequireFromString("110"), Change: decimal.RequireFromString("10"), PercentChange: decimal.RequireFromString("10"), IsUp: true}

	var js bytes.Buffer
	require.NoError(t, writeOutput(&js, "json", kpi))
	assert.JSONEq(t, `{"latest_close":"110","change":"10","percent_change":"10","is_up":true}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, writeOutput(&ym, "yaml", kpi))
	assert.Regexp(t, `latest_close: "?110"?`, ym.String())
	assert.Contains(t, ym.String(), "is_up: true")

	assert.Error(t, writeOutput(&bytes.Buffer{}, "xml", kpi))
}
