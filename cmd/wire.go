//go:build wireinject
// +build wireinject

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

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"
	"github.com/robfig/cron/v3"

	"github.com/ajjensen13/idxstocks/internal/db"
	"github.com/ajjensen13/idxstocks/internal/etl"
	"github.com/ajjensen13/idxstocks/internal/extract"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/serve"
	"github.com/ajjensen13/idxstocks/internal/util"
)

func logger(ctx context.Context, v verbosity) (lg util.Logger, cleanup func(), err error) {
	panic(wire.Build(provideLogger))
}

func appConfiguration() (cfg *appConfig, err error) {
	panic(wire.Build(provideAppConfig))
}

func etlConfig() (cfg etl.Config, err error) {
	panic(wire.Build(provideEtlConfig, provideTimezone, provideAppConfig))
}

func marketSource() (src extract.Source, err error) {
	panic(wire.Build(provideSource, provideAppConfig, provideAppSecrets, provideApiServiceClient))
}

func openStore(ctx context.Context) (store *db.Store, cleanup func(), err error) {
	panic(wire.Build(db.NewStore, provideDbConnPool, provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func lockWait() (bo backoff.BackOff, err error) {
	panic(wire.Build(provideLockWait, provideAppConfig))
}

func aggregator(store *db.Store) (agg *query.Aggregator, err error) {
	panic(wire.Build(provideAggregator, provideQueryConfig, provideAppConfig))
}

func apiServer(ctx context.Context, agg *query.Aggregator, store *db.Store) (srv *serve.Server, err error) {
	panic(wire.Build(provideServer, provideServeConfig, provideAppConfig, provideAppSecrets))
}

func migrator(ctx context.Context, v verbosity) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, provideMigrationSourceURL, provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func scheduler(ctx context.Context) (c *cron.Cron, err error) {
	panic(wire.Build(provideScheduler, provideTimezone, provideAppConfig))
}
