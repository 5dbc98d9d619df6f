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
	"fmt"

	"cloud.google.com/go/logging"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/idxstocks/internal/export"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/util"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored series to csv, json or parquet files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saver := export.NewSaver(exportFormat)
		if saver == nil {
			return fmt.Errorf("unknown export format %q (use csv, json or parquet)", exportFormat)
		}

		return withReads(cmd, func(cmd *cobra.Command, agg *query.Aggregator) (interface{}, error) {
			n, err := export.Export(cmd.Context(), agg, saver, exportDir)
			if err != nil {
				return nil, err
			}
			util.Logf(cmd.Context(), logging.Notice, "exported %d series to %s", len(n), exportDir)
			return n, nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "file format: csv, json or parquet")
	exportCmd.Flags().StringVar(&exportDir, "dir", "export", "output directory")
	exportCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "summary output format: json or yaml")
	rootCmd.AddCommand(exportCmd)
}
