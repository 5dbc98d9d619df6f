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
	"time"

	"cloud.google.com/go/logging"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/idxstocks/internal/etl"
	"github.com/ajjensen13/idxstocks/internal/util"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Append the latest daily bar of every configured ticker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := commandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = runIngest(ctx)
		if err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}
		return nil
	},
}

var backfillConfirmed bool

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Delete all stored bars and reload history from backfill_start",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !backfillConfirmed {
			return errors.New("backfill deletes every stored bar; pass --yes to continue")
		}

		ctx, cleanup, err := commandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		err = runBackfill(ctx)
		if err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillConfirmed, "yes", false, "confirm the destructive reload")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(backfillCmd)
}

// withWriter opens the store and runs f under the writer lock. Config is
// resolved before any connection is made.
func withWriter(ctx context.Context, f func(ctx context.Context, cfg etl.Config, w etl.Writer) error) error {
	cfg, err := etlConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	wait, err := lockWait()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, cleanup, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open price store: %w", err)
	}
	defer cleanup()

	return store.WithWriterLock(ctx, wait, func(ctx context.Context) error {
		return f(ctx, cfg, store)
	})
}

func runIngest(ctx context.Context) (rep etl.IngestReport, err error) {
	src, err := marketSource()
	if err != nil {
		return rep, fmt.Errorf("failed to configure market data source: %w", err)
	}

	err = withWriter(ctx, func(ctx context.Context, cfg etl.Config, w etl.Writer) error {
		rep, err = etl.Ingest(ctx, cfg, src, w, time.Now())
		return err
	})
	if err != nil {
		return rep, err
	}

	util.Logf(ctx, logging.Notice, "ingest finished: %s (inserted %d, skipped %d, no data %d, failed %d)",
		rep.Outcome, rep.Inserted, rep.Skipped, len(rep.NoData), len(rep.Failed))
	return rep, nil
}

func runBackfill(ctx context.Context) error {
	src, err := marketSource()
	if err != nil {
		return fmt.Errorf("failed to configure market data source: %w", err)
	}

	var rep etl.BackfillReport
	err = withWriter(ctx, func(ctx context.Context, cfg etl.Config, w etl.Writer) error {
		rep, err = etl.Backfill(ctx, cfg, src, w, time.Now())
		return err
	})
	if err != nil {
		return err
	}

	util.Logf(ctx, logging.Notice, "backfill finished: deleted %d, loaded %d rows for %d stocks (no data %d, failed %d)",
		rep.Deleted, rep.Rows(), len(rep.Loaded), len(rep.NoData), len(rep.Failed))
	return nil
}
