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
	"errors"
	"log/slog"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// databaseImpl implements the ADBC Database interface on top of database/sql.
type databaseImpl struct {
	driverbase.DatabaseImplBase

	// db is the connection pool over the jdbc driver
	db            *sql.DB
	alloc         memory.Allocator
	typeConverter TypeConverter
	logger        *slog.Logger
}

// newDatabase opens the pool and pings it, which starts the JVM and loads
// the JDBC driver class on first use.
func newDatabase(ctx context.Context, drv *Driver, opts map[string]string) (adbc.Database, error) {
	base, err := driverbase.NewDatabaseImplBase(ctx, &drv.DriverImplBase)
	if err != nil {
		return nil, drv.ErrorHelper.IO("failed to initialize database base: %v", err)
	}

	sqlDB, err := drv.dbFactory.CreateDB(ctx, opts)
	if err != nil {
		return nil, base.ErrorHelper.WrapInvalidArgument(err, "failed to create database")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		err = errors.Join(err, sqlDB.Close())
		return nil, base.ErrorHelper.WrapIO(err, "failed to ping database")
	}

	db := &databaseImpl{
		DatabaseImplBase: base,
		db:               sqlDB,
		alloc:            drv.Alloc,
		typeConverter:    drv.typeConverter,
		logger:           drv.logger,
	}
	return driverbase.NewDatabase(db), nil
}

// Open creates a new ADBC Connection (session) by acquiring a *sql.Conn.
func (d *databaseImpl) Open(ctx context.Context) (adbc.Connection, error) {
	return newConnection(ctx, d)
}

// Close closes the pool, closing every idle JDBC connection.
func (d *databaseImpl) Close() error {
	return d.db.Close()
}
