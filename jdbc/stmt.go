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
	"fmt"
	"log/slog"

	"github.com/adbc-drivers/jdbc/jvm"
)

// stmt wraps a java.sql.PreparedStatement.
type stmt struct {
	conn   *conn
	raw    jvm.Statement
	query  string
	closed bool
}

var (
	_ driver.Stmt             = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
	_ driver.StmtQueryContext = (*stmt)(nil)
)

func (s *stmt) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.conn.run(context.Background(), s.raw.Close)
	if err == driver.ErrBadConn {
		// The connection already released the statement.
		return nil
	}
	return err
}

// NumInput reports the driver's parameter count, or -1 when it cannot tell.
func (s *stmt) NumInput() int {
	n := -1
	_ = s.conn.run(context.Background(), func() error {
		n = s.raw.NumParams()
		return nil
	})
	return n
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.conn.logger.Debug("exec prepared", slog.String("query", s.query), slog.Int("args", len(args)))
	var affected int64
	err := s.conn.run(ctx, func() error {
		if err := bind(s.raw, args); err != nil {
			return err
		}
		var err error
		affected, err = s.raw.ExecuteUpdate()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: exec: %w", err)
	}
	return driver.RowsAffected(affected), nil
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.conn.logger.Debug("query prepared", slog.String("query", s.query), slog.Int("args", len(args)))
	var r *rows
	err := s.conn.run(ctx, func() error {
		if err := bind(s.raw, args); err != nil {
			return err
		}
		rs, err := s.raw.ExecuteQuery()
		if err != nil {
			return err
		}
		if r, err = newRows(s.conn, rs, nil); err != nil {
			_ = rs.Close()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("jdbc: query: %w", err)
	}
	return r, nil
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), named(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), named(args))
}

func named(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}
