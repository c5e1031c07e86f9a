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

// Package jdbcerr defines the failure taxonomy shared by the URL translator,
// the JVM session and the connection factory. None of these failures are
// transient; callers decide on any retry policy themselves.
package jdbcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure.
type Kind int

const (
	// KindConfiguration covers malformed URLs and missing required keys.
	KindConfiguration Kind = iota + 1
	// KindDriverLoad covers a JDBC driver class that cannot be found or registered.
	KindDriverLoad
	// KindConnection covers JVM startup failures and connection-manager rejections.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindDriverLoad:
		return "driver load error"
	case KindConnection:
		return "connection error"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrDriverLoad    = &Error{Kind: KindDriverLoad}
	ErrConnection    = &Error{Kind: KindConnection}
)

// Error is a classified failure. SQLState and VendorCode are filled in when
// the JVM reported a java.sql.SQLException.
type Error struct {
	Kind       Kind
	Op         string
	Msg        string
	SQLState   string
	VendorCode int32
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConnection)
// holds for every connection failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Configuration(op, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func DriverLoad(op string, err error, format string, args ...any) error {
	return &Error{Kind: KindDriverLoad, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Connection wraps err as a connection failure, lifting SQLState and vendor
// code from a wrapped *SQLException.
func Connection(op string, err error, format string, args ...any) error {
	e := &Error{Kind: KindConnection, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
	var sqlErr *SQLException
	if errors.As(err, &sqlErr) {
		e.SQLState = sqlErr.SQLState
		e.VendorCode = sqlErr.VendorCode
	}
	return e
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// SQLException carries the diagnostics of a java.sql.SQLException thrown
// inside the JVM.
type SQLException struct {
	ClassName  string
	Message    string
	SQLState   string
	VendorCode int32
}

func (e *SQLException) Error() string {
	msg := e.ClassName
	if msg == "" {
		msg = "java.sql.SQLException"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.SQLState != "" {
		msg += fmt.Sprintf(" (SQLState %s, vendor code %d)", e.SQLState, e.VendorCode)
	}
	return msg
}
