package cmd

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/idxstocks/internal/extract"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var c appConfig
	c.applyEnv(env(map[string]string{"DATABASE_URL": "postgres://localhost/idx"}))
	c.applyDefaults()

	require.NoError(t, c.validate())
	assert.Equal(t, defaultTickers, c.Tickers)
	assert.Equal(t, "yahoo", c.Provider)
	assert.Equal(t, "Asia/Jakarta", c.Timezone)
	assert.Equal(t, "2025-01-01", c.BackfillStart)
	assert.Equal(t, 30, c.LookbackDays)
	assert.Equal(t, time.Hour, c.CatalogTTL.Duration)
	assert.Equal(t, 5*time.Minute, c.SeriesTTL.Duration)
	assert.Zero(t, c.RequestInterval.Duration)
}

func TestAppConfigEnvOverrides(t *testing.T) {
	c := appConfig{DataSourceName: "postgres://file/idx", Provider: "yahoo"}
	c.applyEnv(env(map[string]string{
		"DATABASE_URL":       "postgres://env/idx",
		"IDXSTOCKS_PROVIDER": "FINNHUB",
		"IDXSTOCKS_TICKERS":  "BBCA.JK, GOTO.JK,,",
	}))
	c.applyDefaults()

	require.NoError(t, c.validate())
	assert.Equal(t, "postgres://env/idx", c.DataSourceName)
	assert.Equal(t, "finnhub", c.Provider)
	assert.Equal(t, []string{"BBCA.JK", "GOTO.JK"}, c.Tickers)
	assert.Equal(t, time.Second, c.RequestInterval.Duration)
}

func TestAppConfigValidate(t *testing.T) {
	c := appConfig{Provider: "bloomberg", Timezone: "Mars/Olympus", BackfillStart: "01/01/2025", Tickers: []string{"BB CA"}}
	err := c.validate()
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrMissingDataSource))
	for _, want := range []string{"bloomberg", "Mars/Olympus", "01/01/2025", "BB CA"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestAppConfigRejectsDuplicateTickers(t *testing.T) {
	c := appConfig{DataSourceName: "postgres://localhost/idx"}
	c.applyEnv(env(map[string]string{"IDXSTOCKS_TICKERS": "BBCA.JK,GOTO.JK,bbca.jk"}))
	c.applyDefaults()

	err := c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate ticker "bbca.jk"`)
	assert.NotContains(t, err.Error(), "GOTO.JK")
}

func TestAppConfigRejectsPlaceholderDSN(t *testing.T) {
	c := appConfig{DataSourceName: "postgresql://postgres:PASTE_YOUR_PASSWORD@db:5432/postgres"}
	c.applyDefaults()

	err := c.validate()
	assert.ErrorIs(t, err, ErrMissingDataSource)
}

func TestDurationJSON(t *testing.T) {
	var c appConfig
	require.NoError(t, json.Unmarshal([]byte(`{"catalog_ttl":"90s","series_ttl":""}`), &c))
	assert.Equal(t, 90*time.Second, c.CatalogTTL.Duration)
	assert.Zero(t, c.SeriesTTL.Duration)

	assert.Error(t, json.Unmarshal([]byte(`{"catalog_ttl":5}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"catalog_ttl":"soon"}`), &c))
}

func TestProvideDataSourceName(t *testing.T) {
	cfg := &appConfig{DataSourceName: "postgres://db:5432/idx?sslmode=disable"}

	dsn, err := provideDataSourceName(url.UserPassword("idx", "pw"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://idx:pw@db:5432/idx?sslmode=disable", dsn.String())

	cfg.DataSourceName = "postgres://own:secret@db/idx"
	dsn, err = provideDataSourceName(url.UserPassword("idx", "pw"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "own", dsn.User.Username())

	dsn, err = provideDataSourceName(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "own", dsn.User.Username())
}

func TestProvideEtlConfig(t *testing.T) {
	tz, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	cfg := &appConfig{Tickers: []string{"BBCA.JK"}, BackfillStart: "2025-01-01", LookbackDays: 14}
	got, err := provideEtlConfig(cfg, tz)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, tz), got.BackfillStart)
	assert.Equal(t, 14, got.LookbackDays)
	assert.Same(t, tz, got.Location)
}

func TestProvideSource(t *testing.T) {
	src, err := provideSource(&appConfig{Provider: "yahoo"}, &appSecrets{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", src.Name())

	_, err = provideSource(&appConfig{Provider: "finnhub"}, &appSecrets{}, nil)
	assert.Error(t, err)

	src, err = provideSource(&appConfig{Provider: "finnhub", Resolution: "D"}, &appSecrets{FinnhubApiKey: "k"}, provideApiServiceClient())
	require.NoError(t, err)
	assert.IsType(t, &extract.Finnhub{}, src)
}

func TestProvideLockWait(t *testing.T) {
	assert.IsType(t, &backoff.StopBackOff{}, provideLockWait(&appConfig{}))

	bo := provideLockWait(&appConfig{LockWait: duration{2 * time.Minute}})
	eb, ok := bo.(*backoff.ExponentialBackOff)
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, eb.MaxElapsedTime)
}
