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
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adbc-drivers/jdbc/jvm"
)

// pingTimeout bounds Connection.isValid.
const pingTimeout = 5 * time.Second

// conn wraps a java.sql.Connection. Every JVM call runs on an attached OS
// thread and is serialized by mu.
type conn struct {
	id      string
	session *jvm.Session
	raw     jvm.Conn
	logger  *slog.Logger

	mu     sync.Mutex
	tx     *tx
	closed bool
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.SessionResetter    = (*conn)(nil)
	_ driver.Validator          = (*conn)(nil)
)

// run calls fn on an attached thread while holding the connection lock.
func (c *conn) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return driver.ErrBadConn
	}
	return c.session.Run(func(jvm.Bridge) error {
		return fn()
	})
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var raw jvm.Statement
	err := c.run(ctx, func() error {
		var err error
		raw, err = c.raw.Prepare(query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: prepare: %w", err)
	}
	return &stmt{conn: c, raw: raw, query: query}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.logger.Debug("exec", slog.String("query", query), slog.Int("args", len(args)))
	var affected int64
	err := c.run(ctx, func() error {
		raw, err := c.raw.Prepare(query)
		if err != nil {
			return err
		}
		defer func() { _ = raw.Close() }()
		if err := bind(raw, args); err != nil {
			return err
		}
		affected, err = raw.ExecuteUpdate()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: exec: %w", err)
	}
	return driver.RowsAffected(affected), nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.logger.Debug("query", slog.String("query", query), slog.Int("args", len(args)))
	var r *rows
	err := c.run(ctx, func() error {
		raw, err := c.raw.Prepare(query)
		if err != nil {
			return err
		}
		if err := bind(raw, args); err != nil {
			_ = raw.Close()
			return err
		}
		rs, err := raw.ExecuteQuery()
		if err != nil {
			_ = raw.Close()
			return err
		}
		if r, err = newRows(c, rs, raw); err != nil {
			_ = rs.Close()
			_ = raw.Close()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: query: %w", err)
	}
	return r, nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) Ping(ctx context.Context) error {
	var valid bool
	err := c.run(ctx, func() error {
		var err error
		valid, err = c.raw.IsValid(pingTimeout)
		return err
	})
	if err != nil || !valid {
		c.logger.Warn("JDBC connection is no longer valid", slog.Any("error", err))
		return driver.ErrBadConn
	}
	return nil
}

func (c *conn) ResetSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return driver.ErrBadConn
	}
	return nil
}

func (c *conn) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	err := c.session.Run(func(jvm.Bridge) error {
		if c.tx != nil {
			// An open transaction is discarded with the connection.
			errs = append(errs, c.raw.Rollback())
			c.tx = nil
		}
		errs = append(errs, c.raw.Close())
		return nil
	})
	errs = append(errs, err)
	c.logger.Debug("JDBC connection closed")
	return errors.Join(errs...)
}

// bind sets positional arguments on a prepared statement.
func bind(raw jvm.Statement, args []driver.NamedValue) error {
	for _, arg := range args {
		if arg.Name != "" {
			return fmt.Errorf("named parameter %q is not supported", arg.Name)
		}
		if err := raw.SetParam(arg.Ordinal, arg.Value); err != nil {
			return fmt.Errorf("bind parameter %d: %w", arg.Ordinal, err)
		}
	}
	return nil
}
