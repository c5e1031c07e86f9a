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

// Package jvm manages the single JVM hosted by this process and the native
// bridge used to call into it.
//
// A process can start at most one JVM and cannot restart it. The classpath,
// library path and JVM arguments given to the first successful start are
// fixed for the lifetime of the process; later requests with different values
// are ignored (and logged), not rejected.
package jvm

import (
	"time"
)

// StartFlags are the optional startup behaviors newer bridges support.
type StartFlags struct {
	// IgnoreUnrecognized tolerates JVM options the runtime does not know.
	IgnoreUnrecognized bool
	// ConvertStrings converts java.lang.String results to Go strings.
	ConvertStrings bool
}

// Bridge is the native capability used to host a JVM in-process. Apart from
// Version, DefaultJVMPath and StartJVM, every method must be called from an
// OS thread that has been attached with AttachCurrentThread.
type Bridge interface {
	// Version reports the bridging library version, e.g. "1.5.0".
	Version() string
	// DefaultJVMPath locates the JVM shared library when none is configured.
	DefaultJVMPath() (string, error)
	// StartJVM boots the JVM. It can succeed at most once per process.
	StartJVM(jvmPath string, args []string, flags StartFlags) error

	// AttachCurrentThread attaches the calling OS thread to the JVM.
	AttachCurrentThread() error
	// UseSystemClassLoader sets the current thread's context class loader to
	// the system class loader, so reflectively loaded driver classes resolve.
	UseSystemClassLoader() error

	// StaticFields returns the static int fields of className by name.
	StaticFields(className string) (map[string]int32, error)
	// LoadClass loads and initializes className. For JDBC drivers this
	// registers the driver with java.sql.DriverManager.
	LoadClass(className string) error
	// Connect calls java.sql.DriverManager.getConnection. When props is
	// non-nil it is passed as a java.util.Properties; otherwise args are
	// passed positionally.
	Connect(url string, props map[string]string, args []string) (Conn, error)
}

// Conn is a live java.sql.Connection.
type Conn interface {
	Prepare(query string) (Statement, error)
	SetAutoCommit(enabled bool) error
	SetReadOnly(readOnly bool) error
	SetTransactionIsolation(level int) error
	TransactionIsolation() (int, error)
	Commit() error
	Rollback() error
	IsValid(timeout time.Duration) (bool, error)
	Close() error
}

// Statement is a java.sql.PreparedStatement.
type Statement interface {
	// NumParams returns the parameter count, or -1 when the driver cannot tell.
	NumParams() int
	// SetParam binds a Go value (nil, int64, float64, bool, string, []byte or
	// time.Time) to the 1-based parameter index.
	SetParam(index int, value any) error
	ExecuteUpdate() (int64, error)
	ExecuteQuery() (ResultSet, error)
	Close() error
}

// Column describes one result column as reported by ResultSetMetaData.
type Column struct {
	Name      string
	TypeCode  int32
	TypeName  string
	Precision int64
	Scale     int64
	// Nullable is one of the java.sql.ResultSetMetaData nullability constants.
	Nullable int
}

const (
	ColumnNoNulls         = 0
	ColumnNullable        = 1
	ColumnNullableUnknown = 2
)

// ValueKind selects the ResultSet getter used to read a column.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt64
	KindFloat64
	KindBool
	KindBytes
)

// ResultSet is a forward-only java.sql.ResultSet.
type ResultSet interface {
	Columns() ([]Column, error)
	Next() (bool, error)
	// Get reads the 1-based column with the getter for kind. SQL NULL is
	// returned as nil.
	Get(index int, kind ValueKind) (any, error)
	Close() error
}

// JDBC transaction isolation levels (java.sql.Connection.TRANSACTION_*).
const (
	TransactionNone            = 0
	TransactionReadUncommitted = 1
	TransactionReadCommitted   = 2
	TransactionRepeatableRead  = 4
	TransactionSerializable    = 8
)
