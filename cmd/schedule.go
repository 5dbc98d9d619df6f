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
	"fmt"

	"cloud.google.com/go/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajjensen13/idxstocks/internal/etl"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/util"
)

var scheduleWithAPI bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingest on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := commandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		cfg, err := appConfiguration()
		if err != nil {
			return util.LogErr(ctx, logging.Error, fmt.Errorf("failed to load configuration: %w", err))
		}

		c, err := scheduler(ctx)
		if err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}

		g, ctx := errgroup.WithContext(ctx)

		var agg *query.Aggregator
		if scheduleWithAPI {
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return util.LogErr(ctx, logging.Error, err)
			}
			defer closeStore()

			agg, err = aggregator(store)
			if err != nil {
				return util.LogErr(ctx, logging.Error, err)
			}
			if err := startAPI(ctx, g, agg, store); err != nil {
				return util.LogErr(ctx, logging.Error, err)
			}
		}

		_, err = c.AddFunc(cfg.Schedule, func() {
			rep, err := runIngest(ctx)
			if err != nil {
				util.Logf(ctx, logging.Error, "scheduled ingest failed: %v", err)
				return
			}
			if agg != nil && rep.Outcome == etl.OutcomeLoaded {
				agg.Invalidate()
			}
		})
		if err != nil {
			return util.LogErr(ctx, logging.Error, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err))
		}

		c.Start()
		util.Logf(ctx, logging.Info, "ingest scheduled at %q", cfg.Schedule)

		g.Go(func() error {
			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		})
		if err := g.Wait(); err != nil && err != context.Canceled {
			return util.LogErr(ctx, logging.Error, err)
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleWithAPI, "serve", false, "also serve the HTTP API and drop its cache after each load")
	rootCmd.AddCommand(scheduleCmd)
}
