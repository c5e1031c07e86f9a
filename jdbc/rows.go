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
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/adbc-drivers/jdbc/jvm"
)

// typeClass groups java.sql.Types constants by how their values are read.
type typeClass int

const (
	classString typeClass = iota
	classInt
	classFloat
	classBool
	classBytes
	classDecimal
	classTemporal
)

func classify(typeName string) typeClass {
	switch typeName {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT":
		return classInt
	case "REAL", "FLOAT", "DOUBLE":
		return classFloat
	case "BIT", "BOOLEAN":
		return classBool
	case "BINARY", "VARBINARY", "LONGVARBINARY", "BLOB":
		return classBytes
	case "DECIMAL", "NUMERIC":
		return classDecimal
	case "DATE", "TIME", "TIMESTAMP", "TIME_WITH_TIMEZONE", "TIMESTAMP_WITH_TIMEZONE":
		return classTemporal
	default:
		return classString
	}
}

func (tc typeClass) kind() jvm.ValueKind {
	switch tc {
	case classInt:
		return jvm.KindInt64
	case classFloat:
		return jvm.KindFloat64
	case classBool:
		return jvm.KindBool
	case classBytes:
		return jvm.KindBytes
	default:
		return jvm.KindString
	}
}

var (
	scanTypeInt64      = reflect.TypeOf(int64(0))
	scanTypeFloat64    = reflect.TypeOf(float64(0))
	scanTypeBool       = reflect.TypeOf(true)
	scanTypeString     = reflect.TypeOf("")
	scanTypeTime       = reflect.TypeOf(time.Time{})
	scanTypeBytes      = reflect.TypeOf([]byte{})
	scanTypeNullInt    = reflect.TypeOf(sql.NullInt64{})
	scanTypeNullFloat  = reflect.TypeOf(sql.NullFloat64{})
	scanTypeNullBool   = reflect.TypeOf(sql.NullBool{})
	scanTypeNullString = reflect.TypeOf(sql.NullString{})
	scanTypeNullTime   = reflect.TypeOf(sql.NullTime{})
)

// temporalLayouts are the text forms JDBC drivers use for dates and times,
// most specific first.
var temporalLayouts = []string{
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999",
}

// parseTemporal parses a JDBC date, time or timestamp string.
func parseTemporal(s string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rows wraps a java.sql.ResultSet. Column types are resolved through the
// session's java.sql.Types cache.
type rows struct {
	conn *conn
	rs   jvm.ResultSet
	// owned is closed with the result set when the statement was created
	// only for this query.
	owned jvm.Statement

	cols      []jvm.Column
	typeNames []string
	classes   []typeClass
	closed    bool
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*rows)(nil)
	_ driver.RowsColumnTypeLength           = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
)

// newRows must be called on an attached thread.
func newRows(c *conn, rs jvm.ResultSet, owned jvm.Statement) (*rows, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result metadata: %w", err)
	}
	types := c.session.Types()
	r := &rows{
		conn:      c,
		rs:        rs,
		owned:     owned,
		cols:      cols,
		typeNames: make([]string, len(cols)),
		classes:   make([]typeClass, len(cols)),
	}
	for i, col := range cols {
		name, ok := types.NameOf(col.TypeCode)
		if !ok {
			// Vendor specific code; read it as text.
			name = "OTHER"
		}
		r.typeNames[i] = name
		r.classes[i] = classify(name)
	}
	return r, nil
}

func (r *rows) Columns() []string {
	names := make([]string, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
	}
	return names
}

// JDBCType returns the java.sql.Types name of column index.
func (r *rows) JDBCType(index int) string {
	return r.typeNames[index]
}

func (r *rows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}
	var more bool
	err := r.conn.run(context.Background(), func() error {
		var err error
		if more, err = r.rs.Next(); err != nil || !more {
			return err
		}
		for i := range dest {
			if dest[i], err = r.read(i); err != nil {
				return fmt.Errorf("column %d (%s): %w", i+1, r.cols[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !more {
		return io.EOF
	}
	return nil
}

func (r *rows) read(i int) (driver.Value, error) {
	class := r.classes[i]
	v, err := r.rs.Get(i+1, class.kind())
	if err != nil || v == nil {
		return nil, err
	}
	if class == classTemporal {
		s, _ := v.(string)
		if t, ok := parseTemporal(s); ok {
			return t, nil
		}
	}
	return v, nil
}

func (r *rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.conn.run(context.Background(), func() error {
		errs := []error{r.rs.Close()}
		if r.owned != nil {
			errs = append(errs, r.owned.Close())
		}
		return errors.Join(errs...)
	})
	if err == driver.ErrBadConn {
		return nil
	}
	return err
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	if name := r.cols[index].TypeName; name != "" {
		return strings.ToUpper(name)
	}
	return r.typeNames[index]
}

func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	switch r.cols[index].Nullable {
	case jvm.ColumnNoNulls:
		return false, true
	case jvm.ColumnNullable:
		return true, true
	default:
		return false, false
	}
}

func (r *rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	if r.classes[index] != classDecimal {
		return 0, 0, false
	}
	return r.cols[index].Precision, r.cols[index].Scale, true
}

func (r *rows) ColumnTypeLength(index int) (length int64, ok bool) {
	switch r.typeNames[index] {
	case "CHAR", "VARCHAR", "LONGVARCHAR", "NCHAR", "NVARCHAR", "LONGNVARCHAR",
		"BINARY", "VARBINARY", "LONGVARBINARY":
		return r.cols[index].Precision, true
	}
	return 0, false
}

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	nullable := r.cols[index].Nullable != jvm.ColumnNoNulls
	switch r.classes[index] {
	case classInt:
		if nullable {
			return scanTypeNullInt
		}
		return scanTypeInt64
	case classFloat:
		if nullable {
			return scanTypeNullFloat
		}
		return scanTypeFloat64
	case classBool:
		if nullable {
			return scanTypeNullBool
		}
		return scanTypeBool
	case classBytes:
		return scanTypeBytes
	case classTemporal:
		if nullable {
			return scanTypeNullTime
		}
		return scanTypeTime
	default:
		if nullable {
			return scanTypeNullString
		}
		return scanTypeString
	}
}
