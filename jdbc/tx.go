// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jdbc

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adbc-drivers/jdbc/jvm"
)

// isolationLevel maps a database/sql isolation level to a JDBC
// TRANSACTION_* constant. Zero means the driver default.
func isolationLevel(level sql.IsolationLevel) (int, error) {
	switch level {
	case sql.LevelDefault:
		return 0, nil
	case sql.LevelReadUncommitted:
		return jvm.TransactionReadUncommitted, nil
	case sql.LevelReadCommitted:
		return jvm.TransactionReadCommitted, nil
	case sql.LevelRepeatableRead:
		return jvm.TransactionRepeatableRead, nil
	case sql.LevelSerializable:
		return jvm.TransactionSerializable, nil
	default:
		return 0, fmt.Errorf("jdbc: isolation level %s is not supported", level)
	}
}

// tx runs with auto-commit disabled. Finishing it turns auto-commit back on
// and restores the read-only flag and isolation level it changed, so a pooled
// connection leaves the transaction in its previous state.
type tx struct {
	conn     *conn
	readOnly bool
	// prevIsolation is the level to restore; zero when it was not changed.
	prevIsolation int
}

var _ driver.Tx = (*tx)(nil)

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	level, err := isolationLevel(sql.IsolationLevel(opts.Isolation))
	if err != nil {
		return nil, err
	}
	t := &tx{conn: c}
	err = c.run(ctx, func() error {
		if c.tx != nil {
			return errors.New("a transaction is already in progress")
		}
		if level != 0 {
			prev, err := c.raw.TransactionIsolation()
			if err != nil {
				return err
			}
			if prev != level {
				if err := c.raw.SetTransactionIsolation(level); err != nil {
					return err
				}
				t.prevIsolation = prev
			}
		}
		if opts.ReadOnly {
			if err := c.raw.SetReadOnly(true); err != nil {
				return errors.Join(err, t.restore())
			}
			t.readOnly = true
		}
		if err := c.raw.SetAutoCommit(false); err != nil {
			return errors.Join(err, t.restore())
		}
		c.tx = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: begin: %w", err)
	}
	c.logger.Debug("transaction started", slog.Int("isolation", level), slog.Bool("read_only", opts.ReadOnly))
	return t, nil
}

// restore undoes the read-only flag and isolation level set by BeginTx.
func (t *tx) restore() error {
	var errs []error
	if t.readOnly {
		errs = append(errs, t.conn.raw.SetReadOnly(false))
	}
	if t.prevIsolation != 0 {
		errs = append(errs, t.conn.raw.SetTransactionIsolation(t.prevIsolation))
	}
	return errors.Join(errs...)
}

func (t *tx) Commit() error {
	return t.finish("commit", t.conn.raw.Commit)
}

func (t *tx) Rollback() error {
	return t.finish("rollback", t.conn.raw.Rollback)
}

func (t *tx) finish(op string, end func() error) error {
	c := t.conn
	err := c.run(context.Background(), func() error {
		if c.tx != t {
			return errors.New("transaction is no longer active")
		}
		c.tx = nil
		// Isolation can only change outside a transaction, so auto-commit
		// goes back on first.
		return errors.Join(end(), c.raw.SetAutoCommit(true), t.restore())
	})
	if err != nil {
		return fmt.Errorf("jdbc: %s: %w", op, err)
	}
	c.logger.Debug("transaction finished", slog.String("op", op))
	return nil
}
