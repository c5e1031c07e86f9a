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

// Package testutil holds test helpers shared across packages, including an
// in-memory Bridge that stands in for a JVM.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// CheckedClose validates that a deferred Close call did not fail.
// See: https://github.com/stretchr/testify/issues/1067
func CheckedClose(t *testing.T, obj io.Closer) {
	if err := obj.Close(); err != nil {
		t.Errorf("Failed to close object of type %T: %s", obj, err)
	}
}

// RecordFromJSON is the same as array.RecordFromJSON, but fails the test on error.
func RecordFromJSON(t *testing.T, mem memory.Allocator, schema *arrow.Schema, json string) arrow.RecordBatch {
	record, _, err := array.RecordFromJSON(mem, schema, bytes.NewReader([]byte(json)))
	if err != nil {
		t.Fatalf("failed to create record from JSON: %v", err)
	}
	return record
}

// CaptureLogger returns a debug-level logger writing text records to buf.
func CaptureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// JDBCTypes returns the java.sql.Types constants a real JVM reports.
func JDBCTypes() map[string]int32 {
	return map[string]int32{
		"ARRAY":                   int32(driverbase.XdbcDataTypeArray),
		"BIGINT":                  int32(driverbase.XdbcDataTypeBigint),
		"BINARY":                  int32(driverbase.XdbcDataTypeBinary),
		"BIT":                     int32(driverbase.XdbcDataTypeBit),
		"BLOB":                    int32(driverbase.XdbcDataTypeBlob),
		"BOOLEAN":                 int32(driverbase.XdbcDataTypeBoolean),
		"CHAR":                    int32(driverbase.XdbcDataTypeChar),
		"CLOB":                    int32(driverbase.XdbcDataTypeClob),
		"DATALINK":                int32(driverbase.XdbcDataTypeDatalink),
		"DATE":                    int32(driverbase.XdbcDataTypeDate),
		"DECIMAL":                 int32(driverbase.XdbcDataTypeDecimal),
		"DISTINCT":                int32(driverbase.XdbcDataTypeDistinct),
		"DOUBLE":                  int32(driverbase.XdbcDataTypeDouble),
		"FLOAT":                   int32(driverbase.XdbcDataTypeFloat),
		"INTEGER":                 int32(driverbase.XdbcDataTypeInteger),
		"JAVA_OBJECT":             int32(driverbase.XdbcDataTypeJavaObject),
		"LONGNVARCHAR":            int32(driverbase.XdbcDataTypeLongNVarChar),
		"LONGVARBINARY":           int32(driverbase.XdbcDataTypeLongVarBinary),
		"LONGVARCHAR":             int32(driverbase.XdbcDataTypeLongVarChar),
		"NCHAR":                   int32(driverbase.XdbcDataTypeNChar),
		"NCLOB":                   int32(driverbase.XdbcDataTypeNClob),
		"NULL":                    int32(driverbase.XdbcDataTypeNull),
		"NUMERIC":                 int32(driverbase.XdbcDataTypeNumeric),
		"NVARCHAR":                int32(driverbase.XdbcDataTypeNVarChar),
		"OTHER":                   int32(driverbase.XdbcDataTypeOther),
		"REAL":                    int32(driverbase.XdbcDataTypeReal),
		"REF":                     int32(driverbase.XdbcDataTypeRef),
		"REF_CURSOR":              int32(driverbase.XdbcDataTypeRefCursor),
		"ROWID":                   int32(driverbase.XdbcDataTypeRowId),
		"SMALLINT":                int32(driverbase.XdbcDataTypeSmallint),
		"SQLXML":                  int32(driverbase.XdbcDataTypeSqlXml),
		"STRUCT":                  int32(driverbase.XdbcDataTypeStruct),
		"TIME":                    int32(driverbase.XdbcDataTypeTime),
		"TIME_WITH_TIMEZONE":      int32(driverbase.XdbcDataTypeTimeWithTimezone),
		"TIMESTAMP":               int32(driverbase.XdbcDataTypeTimestamp),
		"TIMESTAMP_WITH_TIMEZONE": int32(driverbase.XdbcDataTypeTimestampWithTimezone),
		"TINYINT":                 int32(driverbase.XdbcDataTypeTinyint),
		"VARBINARY":               int32(driverbase.XdbcDataTypeVarBinary),
		"VARCHAR":                 int32(driverbase.XdbcDataTypeVarChar),
	}
}
