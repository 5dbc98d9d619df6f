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

package util

import (
	"context"
	"fmt"
	"runtime"

	"cloud.google.com/go/logging"
	logpb "cloud.google.com/go/logging/apiv2/loggingpb"
)

type contextKey string

const (
	loggerContextKey contextKey = "logger"
	extraContextKey  contextKey = "extra"
)

// Logger is the subset of gke.Logger the packages in this module write to.
type Logger interface {
	Log(e logging.Entry)
}

func WithLoggerValue(ctx context.Context, key string, val interface{}) context.Context {
	var nm map[string]interface{}
	p := ctx.Value(extraContextKey)
	if p != nil {
		pm := p.(map[string]interface{})
		nm = make(map[string]interface{}, len(pm)+1)
		for k, v := range pm {
			nm[k] = v
		}
	} else {
		nm = map[string]interface{}{}
	}

	nm[key] = val
	return context.WithValue(ctx, extraContextKey, nm)
}

func WithLogger(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, lg)
}

type logPayload struct {
	Message string
	Values  map[string]interface{}
}

func (l logPayload) String() string {
	return l.Message
}

// Logf writes to the logger carried by ctx. Without one it does nothing.
func Logf(ctx context.Context, severity logging.Severity, format string, argv ...interface{}) {
	log(ctx, severity, newLogPayload(ctx, fmt.Sprintf(format, argv...)))
}

// LogErr logs err at severity and returns it unchanged.
func LogErr(ctx context.Context, severity logging.Severity, err error) error {
	log(ctx, severity, newLogPayload(ctx, err.Error()))
	return err
}

func log(ctx context.Context, severity logging.Severity, payload logPayload) {
	lg, ok := ctx.Value(loggerContextKey).(Logger)
	if !ok || lg == nil {
		return
	}
	entry := logging.Entry{Severity: severity, Payload: payload, SourceLocation: sourceLocation(3)}
	lg.Log(entry)
}

// sourceLocation reports the caller skip frames above itself.
func sourceLocation(skip int) *logpb.LogEntrySourceLocation {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}
	ret := &logpb.LogEntrySourceLocation{File: file, Line: int64(line)}
	if fn := runtime.FuncForPC(pc); fn != nil {
		ret.Function = fn.Name()
	}
	return ret
}

func newLogPayload(ctx context.Context, msg string) logPayload {
	ret := logPayload{Message: msg}
	if v := ctx.Value(extraContextKey); v != nil {
		ret.Values = v.(map[string]interface{})
	}
	return ret
}
