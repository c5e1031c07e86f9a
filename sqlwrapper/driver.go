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

// Package sqlwrapper exposes JDBC drivers as an ADBC driver by wrapping the
// jdbc database/sql driver.
package sqlwrapper

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/adbc-drivers/jdbc/jdbc"
	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const (
	DriverName = "jdbc"
	VendorName = "JDBC"
)

// DBFactory handles creation of *sql.DB from connection options.
type DBFactory interface {
	CreateDB(ctx context.Context, opts map[string]string) (*sql.DB, error)
}

// DefaultDBFactory opens a *sql.DB over a jdbc.Connector. Session defaults
// to the process-wide JVM session.
type DefaultDBFactory struct {
	Session *jvm.Session
	Logger  *slog.Logger
	Builder ConnOptionsBuilder
}

// CreateDB translates and validates the options. No JVM work happens until
// the first connection is opened.
func (f *DefaultDBFactory) CreateDB(ctx context.Context, opts map[string]string) (*sql.DB, error) {
	builder := f.Builder
	if builder == nil {
		builder = &DefaultConnOptionsBuilder{}
	}
	connOpts, err := builder.BuildConnOptions(opts)
	if err != nil {
		return nil, err
	}
	poolOpts, err := PoolOptionsFromMap(opts)
	if err != nil {
		return nil, err
	}
	if f.Session != nil {
		connOpts = append(connOpts, jdbc.WithSession(f.Session))
	}
	if f.Logger != nil {
		connOpts = append(connOpts, jdbc.WithLogger(f.Logger))
	}
	connector, err := jdbc.NewConnector(connOpts...)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	NewPoolConfig(poolOpts...).Apply(db)
	return db, nil
}

// Driver provides an ADBC driver over JDBC drivers running in the embedded
// JVM.
type Driver struct {
	driverbase.DriverImplBase
	typeConverter TypeConverter
	dbFactory     DBFactory
	logger        *slog.Logger
}

// NewDriver creates the ADBC driver. Databases are opened through
// DefaultDBFactory and DefaultTypeConverter unless overridden.
func NewDriver(alloc memory.Allocator) *Driver {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	info := driverbase.DefaultDriverInfo(VendorName)
	base := driverbase.NewDriverImplBase(info, alloc)
	base.ErrorHelper.DriverName = DriverName
	base.ErrorHelper.ErrorInspector = ErrorInspector{}
	return &Driver{
		DriverImplBase: base,
		typeConverter:  DefaultTypeConverter{},
		dbFactory:      &DefaultDBFactory{},
		logger:         slog.Default(),
	}
}

// WithDBFactory sets a custom DB factory for this driver.
func (d *Driver) WithDBFactory(factory DBFactory) *Driver {
	d.dbFactory = factory
	return d
}

// WithTypeConverter replaces the JDBC-to-Arrow type mapping.
func (d *Driver) WithTypeConverter(converter TypeConverter) *Driver {
	d.typeConverter = converter
	return d
}

// WithLogger sets the logger used for statement debug logging.
func (d *Driver) WithLogger(logger *slog.Logger) *Driver {
	d.logger = logger
	return d
}

// NewDatabase expects opts[adbc.OptionKeyURI] to hold the abstract JDBC URL.
func (d *Driver) NewDatabase(opts map[string]string) (adbc.Database, error) {
	return d.NewDatabaseWithContext(context.Background(), opts)
}

// NewDatabaseWithContext is the same, but lets you pass in a context.
func (d *Driver) NewDatabaseWithContext(ctx context.Context, opts map[string]string) (adbc.Database, error) {
	return newDatabase(ctx, d, opts)
}
