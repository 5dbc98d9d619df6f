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
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/util"
)

var outputFormat string

func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q (use json or yaml)", format)
	}
}

// withReads runs f against an aggregator over a fresh pool and prints its
// result.
func withReads(cmd *cobra.Command, f func(cmd *cobra.Command, agg *query.Aggregator) (interface{}, error)) error {
	ctx, cleanup, err := commandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	cmd.SetContext(ctx)

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

	v, err := f(cmd, agg)
	if err != nil {
		return util.LogErr(ctx, logging.Error, err)
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, v)
}

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "List stored tickers with their display names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReads(cmd, func(cmd *cobra.Command, agg *query.Aggregator) (interface{}, error) {
			return agg.ListTickers(cmd.Context())
		})
	},
}

var kpiCmd = &cobra.Command{
	Use:   "kpi SYMBOL",
	Short: "Print the latest close and day-over-day change of a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReads(cmd, func(cmd *cobra.Command, agg *query.Aggregator) (interface{}, error) {
			cat, err := agg.ListTickers(cmd.Context())
			if err != nil {
				return nil, err
			}
			symbol, ok := cat.Resolve(args[0])
			if !ok {
				symbol = args[0]
			}
			series, err := agg.Series(cmd.Context(), symbol)
			if err != nil {
				return nil, err
			}
			return struct {
				Symbol string      `json:"symbol" yaml:"symbol"`
				KPI    interface{} `json:"kpi" yaml:"kpi"`
			}{symbol, query.ComputeKPI(series)}, nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the last stored date, ticker count and row count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReads(cmd, func(cmd *cobra.Command, agg *query.Aggregator) (interface{}, error) {
			return agg.Summary(cmd.Context())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tickersCmd, kpiCmd, summaryCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
		rootCmd.AddCommand(c)
	}
}
