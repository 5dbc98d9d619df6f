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

	"github.com/ajjensen13/idxstocks/internal/db"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/serve"
	"github.com/ajjensen13/idxstocks/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tickers, series and KPIs over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := commandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := appConfiguration(); err != nil {
			return util.LogErr(ctx, logging.Error, fmt.Errorf("failed to load configuration: %w", err))
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}
		defer closeStore()

		agg, err := aggregator(store)
		if err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}

		g, ctx := errgroup.WithContext(ctx)
		if err := startAPI(ctx, g, agg, store); err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}
		if err := g.Wait(); err != nil {
			return util.LogErr(ctx, logging.Error, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// startAPI runs the API server in g until ctx is done.
func startAPI(ctx context.Context, g *errgroup.Group, agg *query.Aggregator, store *db.Store) error {
	srv, err := apiServer(ctx, agg, store)
	if err != nil {
		return err
	}
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return shutdown(srv)
	})
	return nil
}

func shutdown(srv *serve.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), util.ShortReqTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
