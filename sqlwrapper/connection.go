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

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// connectionImpl implements the ADBC Connection interface on top of one
// dedicated JDBC connection.
type connectionImpl struct {
	driverbase.ConnectionImplBase

	conn          *LoggingConn
	alloc         memory.Allocator
	typeConverter TypeConverter
}

// newConnection creates a new ADBC Connection by acquiring a *sql.Conn from the pool.
func newConnection(ctx context.Context, db *databaseImpl) (adbc.Connection, error) {
	sqlConn, err := db.db.Conn(ctx)
	if err != nil {
		return nil, db.ErrorHelper.WrapIO(err, "failed to acquire database connection")
	}

	base := driverbase.NewConnectionImplBase(&db.DatabaseImplBase)
	impl := &connectionImpl{
		ConnectionImplBase: base,
		conn:               &LoggingConn{Conn: sqlConn, Logger: db.logger},
		alloc:              db.alloc,
		typeConverter:      db.typeConverter,
	}

	builder := driverbase.NewConnectionBuilder(impl)
	return builder.Connection(), nil
}

// NewStatement satisfies adbc.Connection
func (c *connectionImpl) NewStatement() (adbc.Statement, error) {
	return newStatement(c), nil
}

// SetOption sets a string option on this connection
func (c *connectionImpl) SetOption(key, value string) error {
	return c.ConnectionImplBase.SetOption(key, value)
}

// Commit is not supported: ADBC connections stay in auto-commit mode.
// TODO: map adbc.OptionKeyAutoCommit onto a database/sql transaction held
// by the connection so Commit and Rollback can be supported.
func (c *connectionImpl) Commit(ctx context.Context) error {
	return c.Base().ErrorHelper.Errorf(
		adbc.StatusNotImplemented,
		"Commit not supported in auto-commit mode",
	)
}

// Rollback is not supported: ADBC connections stay in auto-commit mode.
func (c *connectionImpl) Rollback(ctx context.Context) error {
	return c.Base().ErrorHelper.Errorf(
		adbc.StatusNotImplemented,
		"Rollback not supported in auto-commit mode",
	)
}

// Close returns the JDBC connection to the pool.
func (c *connectionImpl) Close() error {
	return c.conn.Close()
}
