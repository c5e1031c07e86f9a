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

// Package jdbc is a database/sql driver that reaches databases through JDBC
// drivers running in an embedded JVM.
//
//	db, err := sql.Open("jdbc", "jdbc+h2://localhost/~/test?_driver=h2:tcp&_class=org.h2.Driver&_jars=/opt/h2.jar")
//
// The DSN is translated by package jdbcurl. All connections in a process
// share one JVM; see package jvm for the consequences.
package jdbc

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

// DriverName is the name the driver is registered under.
const DriverName = "jdbc"

func init() {
	sql.Register(DriverName, &Driver{})
}

type Driver struct{}

var _ driver.DriverContext = (*Driver)(nil)

func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	connector, err := NewConnector(WithURL(dsn))
	if err != nil {
		return nil, err
	}
	return connector, nil
}

func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}
