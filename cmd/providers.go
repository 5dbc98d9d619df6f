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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"cloud.google.com/go/logging"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/ajjensen13/idxstocks/internal/db"
	"github.com/ajjensen13/idxstocks/internal/etl"
	"github.com/ajjensen13/idxstocks/internal/extract"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/serve"
	"github.com/ajjensen13/idxstocks/internal/util"
)

func provideAppConfig() (*appConfig, error) {
	return loadAppConfig()
}

func provideAppSecrets() (*appSecrets, error) {
	return loadAppSecrets()
}

func provideTimezone(cfg *appConfig) (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(cfg.Timezone)
}

func provideApiServiceClient() *finnhub.DefaultApiService {
	return finnhub.NewAPIClient(finnhub.NewConfiguration()).DefaultApi
}

func provideSource(cfg *appConfig, secrets *appSecrets, client *finnhub.DefaultApiService) (extract.Source, error) {
	switch cfg.Provider {
	case "finnhub":
		if secrets.FinnhubApiKey == "" {
			return nil, errors.New("provider finnhub needs finnhub_api_key or FINNHUB_API_KEY")
		}
		return &extract.Finnhub{
			Candles:    extract.NewCandleFunc(client),
			APIKey:     secrets.FinnhubApiKey,
			Resolution: cfg.Resolution,
		}, nil
	case "yahoo":
		return extract.NewYahoo(cfg.YahooBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func provideEtlConfig(cfg *appConfig, tz *time.Location) (etl.Config, error) {
	start, err := time.ParseInLocation("2006-01-02", cfg.BackfillStart, tz)
	if err != nil {
		return etl.Config{}, fmt.Errorf("failed to parse backfill start: %w", err)
	}
	return etl.Config{
		Tickers:         cfg.Tickers,
		LookbackDays:    cfg.LookbackDays,
		BackfillStart:   start,
		RequestInterval: cfg.RequestInterval.Duration,
		Location:        tz,
	}, nil
}

func provideQueryConfig(cfg *appConfig) query.Config {
	return query.Config{
		CatalogTTL:     cfg.CatalogTTL.Duration,
		SeriesTTL:      cfg.SeriesTTL.Duration,
		ExchangeSuffix: cfg.ExchangeSuffix,
	}
}

func provideServeConfig(cfg *appConfig, secrets *appSecrets) serve.Config {
	return serve.Config{
		ListenAddr:      cfg.ListenAddr,
		APIKey:          secrets.ApiKey,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
	}
}

func provideAggregator(store *db.Store, cfg query.Config) *query.Aggregator {
	return query.New(store, cfg)
}

func provideServer(ctx context.Context, agg *query.Aggregator, store *db.Store, cfg serve.Config) *serve.Server {
	return serve.NewServer(ctx, agg, store, cfg)
}

// provideDbSecrets tolerates a missing secret file; the connection string
// may carry its own credentials.
func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return ui, nil
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	if dsn.User == nil && user != nil {
		dsn.User = user
	}

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := db.Open(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, err
	}

	return pool, pool.Close, nil
}

// provideLockWait gives up at once when lock_wait is zero.
func provideLockWait(cfg *appConfig) backoff.BackOff {
	if cfg.LockWait.Duration <= 0 {
		return &backoff.StopBackOff{}
	}
	result := backoff.NewExponentialBackOff()
	result.InitialInterval = time.Second
	result.MaxInterval = 30 * time.Second
	result.MaxElapsedTime = cfg.LockWait.Duration
	return result
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideMigrator(ctx context.Context, v verbosity, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrationLogger{ctx: ctx, verbose: bool(v)}
	return m, nil
}

func provideScheduler(ctx context.Context, tz *time.Location) *cron.Cron {
	lg := cronLogger{ctx: util.WithLoggerValue(ctx, "action", "schedule")}
	return cron.New(
		cron.WithLocation(tz),
		cron.WithLogger(lg),
		cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
	)
}

func provideLogger(ctx context.Context, v verbosity) (lg util.Logger, cleanup func(), err error) {
	gl, cleanup, err := gke.NewLogger(ctx)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create logger: %w", err)
	}

	gke.LogEnv(gl)
	gke.LogMetadata(gl)

	min := logging.Info
	if v {
		min = logging.Debug
	}
	return leveledLogger{Logger: gl, min: min}, cleanup, nil
}
