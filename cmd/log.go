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
	"strings"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/idxstocks/internal/util"
)

// verbosity lowers the minimum logged severity to Debug.
type verbosity bool

// leveledLogger drops entries below min. Entries without a severity always
// pass.
type leveledLogger struct {
	util.Logger
	min logging.Severity
}

func (l leveledLogger) Log(e logging.Entry) {
	if e.Severity != logging.Default && e.Severity < l.min {
		return
	}
	l.Logger.Log(e)
}

type migrationLogger struct {
	ctx     context.Context
	verbose bool
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	util.Logf(m.ctx, logging.Info, strings.TrimSuffix(format, "\n"), v...)
}

func (m migrationLogger) Verbose() bool {
	return m.verbose
}

// cronLogger adapts the context logger to cron.Logger.
type cronLogger struct {
	ctx context.Context
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	util.Logf(c.ctx, logging.Debug, "%s%s", msg, formatKeysAndValues(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	util.Logf(c.ctx, logging.Error, "%s: %v%s", msg, err, formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
