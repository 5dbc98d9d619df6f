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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/logging"
	"github.com/cenkalti/backoff/v4"

	"github.com/ajjensen13/idxstocks/internal/util"
)

// writerLockKey identifies the advisory lock shared by every writer.
const writerLockKey int64 = 0x69647873746b

var ErrWriterBusy = errors.New("another writer holds the price store lock")

// WithWriterLock runs f while holding the session advisory lock that
// serialises ingestion and backfill. While another process holds it the
// attempt is repeated on wait; a nil wait gives up after the first attempt.
func (s *Store) WithWriterLock(ctx context.Context, wait backoff.BackOff, f func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to aquire connection: %w", err)
	}
	defer conn.Release()

	if wait == nil {
		wait = &backoff.StopBackOff{}
	}

	err = backoff.RetryNotify(func() error {
		var ok bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, writerLockKey).Scan(&ok); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to request writer lock: %w", err))
		}
		if !ok {
			return ErrWriterBusy
		}
		return nil
	}, backoff.WithContext(wait, ctx), func(err error, d time.Duration) {
		util.Logf(ctx, logging.Info, "writer lock is held elsewhere, waiting %v", d)
	})
	if err != nil {
		return err
	}
	util.Logf(ctx, logging.Debug, "acquired writer lock")

	defer func() {
		uctx, cancel := context.WithTimeout(context.Background(), util.ShortReqTimeout)
		defer cancel()
		if _, err := conn.Exec(uctx, `SELECT pg_advisory_unlock($1)`, writerLockKey); err != nil {
			util.Logf(ctx, logging.Warning, "failed to release writer lock: %v", err)
		}
	}()

	return f(ctx)
}
