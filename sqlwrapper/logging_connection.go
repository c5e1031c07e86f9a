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

package sqlwrapper

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
)

// Wrappers around database/sql types that log statements at debug level.
// Only the SQL text and the argument count are logged; bound values may
// carry credentials.

type LoggingConn struct {
	Conn   *sql.Conn
	Logger *slog.Logger
}

func (tc *LoggingConn) logger() *slog.Logger {
	if tc.Logger == nil {
		return slog.Default()
	}
	return tc.Logger
}

func (tc *LoggingConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tc.Conn == nil {
		return nil, adbc.Error{Code: adbc.StatusInvalidState, Msg: "LoggingConn.ExecContext: nil connection"}
	}
	start := time.Now()
	rs, err := tc.Conn.ExecContext(ctx, query, args...)
	tc.logger().DebugContext(ctx, "exec",
		slog.String("query", query), slog.Int("args", len(args)),
		slog.Duration("elapsed", time.Since(start)), slog.Any("err", err))
	return rs, err
}

func (tc *LoggingConn) QueryContext(ctx context.Context, query string, args ...any) (*LoggingRows, error) {
	if tc.Conn == nil {
		return nil, adbc.Error{Code: adbc.StatusInvalidState, Msg: "LoggingConn.QueryContext: nil connection"}
	}
	start := time.Now()
	rows, err := tc.Conn.QueryContext(ctx, query, args...)
	tc.logger().DebugContext(ctx, "query",
		slog.String("query", query), slog.Int("args", len(args)),
		slog.Duration("elapsed", time.Since(start)), slog.Any("err", err))
	if err != nil {
		return nil, err
	}
	return &LoggingRows{Rows: rows, Logger: tc.logger()}, nil
}

func (tc *LoggingConn) PingContext(ctx context.Context) error {
	if tc.Conn == nil {
		return adbc.Error{Code: adbc.StatusInvalidState, Msg: "LoggingConn.PingContext: nil connection"}
	}
	err := tc.Conn.PingContext(ctx)
	tc.logger().DebugContext(ctx, "ping", slog.Any("err", err))
	return err
}

func (tc *LoggingConn) PrepareContext(ctx context.Context, query string) (*LoggingStmt, error) {
	if tc.Conn == nil {
		return nil, adbc.Error{Code: adbc.StatusInvalidState, Msg: "LoggingConn.PrepareContext: nil connection"}
	}
	stmt, err := tc.Conn.PrepareContext(ctx, query)
	tc.logger().DebugContext(ctx, "prepare", slog.String("query", query), slog.Any("err", err))
	if err != nil {
		return nil, err
	}
	return &LoggingStmt{Stmt: stmt, Query: query, Logger: tc.logger()}, nil
}

func (tc *LoggingConn) Close() error {
	if tc.Conn == nil {
		return nil
	}
	return tc.Conn.Close()
}

type LoggingRows struct {
	Rows   *sql.Rows
	Logger *slog.Logger
	count  int64
}

func (lr *LoggingRows) Close() error {
	err := lr.Rows.Close()
	lr.Logger.Debug("rows closed", slog.Int64("rows", lr.count), slog.Any("err", err))
	return err
}

func (lr *LoggingRows) ColumnTypes() ([]*sql.ColumnType, error) {
	return lr.Rows.ColumnTypes()
}

func (lr *LoggingRows) Err() error {
	return lr.Rows.Err()
}

func (lr *LoggingRows) Next() bool {
	if lr.Rows.Next() {
		lr.count++
		return true
	}
	return false
}

func (lr *LoggingRows) Scan(dest ...any) error {
	return lr.Rows.Scan(dest...)
}

type LoggingStmt struct {
	Stmt   *sql.Stmt
	Query  string
	Logger *slog.Logger
}

func (ls *LoggingStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	res, err := ls.Stmt.ExecContext(ctx, args...)
	ls.Logger.DebugContext(ctx, "exec prepared",
		slog.String("query", ls.Query), slog.Int("args", len(args)), slog.Any("err", err))
	return res, err
}

func (ls *LoggingStmt) QueryContext(ctx context.Context, args ...any) (*LoggingRows, error) {
	rows, err := ls.Stmt.QueryContext(ctx, args...)
	ls.Logger.DebugContext(ctx, "query prepared",
		slog.String("query", ls.Query), slog.Int("args", len(args)), slog.Any("err", err))
	if err != nil {
		return nil, err
	}
	return &LoggingRows{Rows: rows, Logger: ls.Logger}, nil
}

func (ls *LoggingStmt) Close() error {
	return ls.Stmt.Close()
}
