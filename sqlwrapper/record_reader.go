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
	"fmt"
	"io"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// sqlRecordReaderImpl is the row-wise reader that BaseRecordReader pivots
// into Arrow batches. With bind parameters, the query runs once per
// parameter row.
type sqlRecordReaderImpl struct {
	rows      *LoggingRows
	values    []any
	valuePtrs []any
	schema    *arrow.Schema

	conn          *LoggingConn
	query         string
	stmt          *LoggingStmt // owned by the statement, never closed here
	typeConverter TypeConverter

	columnInserters []Inserter
}

var _ driverbase.RecordReaderImpl = (*sqlRecordReaderImpl)(nil)

// NextResultSet runs the query for parameter row rowIdx of rec (or without
// parameters when rec is nil) and returns the result schema.
func (s *sqlRecordReaderImpl) NextResultSet(ctx context.Context, rec arrow.RecordBatch, rowIdx int) (*arrow.Schema, error) {
	if s.rows != nil {
		if err := s.rows.Close(); err != nil {
			return nil, fmt.Errorf("failed to close previous result set: %w", err)
		}
		s.rows = nil
	}

	var args []any
	if rec != nil {
		args = make([]any, int(rec.NumCols()))
		for i := range args {
			field := rec.Schema().Field(i)
			var err error
			if args[i], err = s.typeConverter.ConvertArrowToGo(rec.Column(i), rowIdx, &field); err != nil {
				return nil, fmt.Errorf("failed to extract parameter %d: %w", i, err)
			}
		}
	}

	var err error
	if s.stmt != nil {
		s.rows, err = s.stmt.QueryContext(ctx, args...)
	} else {
		s.rows, err = s.conn.QueryContext(ctx, s.query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	columnTypes, err := s.rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	schema, err := buildArrowSchemaFromColumnTypes(columnTypes, s.typeConverter)
	if err != nil {
		return nil, fmt.Errorf("failed to build Arrow schema: %w", err)
	}
	if s.schema != nil && !s.schema.Equal(schema) {
		return nil, fmt.Errorf("result schema changed between parameter rows: %s != %s", schema, s.schema)
	}
	s.schema = schema

	if len(s.values) != len(columnTypes) {
		s.values = make([]any, len(columnTypes))
		s.valuePtrs = make([]any, len(columnTypes))
		for i := range s.values {
			s.valuePtrs[i] = &s.values[i]
		}
	}
	return s.schema, nil
}

// BeginAppending binds one inserter per column builder.
func (s *sqlRecordReaderImpl) BeginAppending(builder *array.RecordBuilder) error {
	s.columnInserters = make([]Inserter, len(s.schema.Fields()))
	for i, field := range s.schema.Fields() {
		inserter, err := s.typeConverter.CreateInserter(&field, builder.Field(i))
		if err != nil {
			return fmt.Errorf("failed to create inserter for column %d: %w", i, err)
		}
		s.columnInserters[i] = inserter
	}
	return nil
}

// AppendRow reads one row and appends it to the builder. It returns io.EOF
// when the current result set is exhausted.
func (s *sqlRecordReaderImpl) AppendRow(builder *array.RecordBuilder) error {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return err
		}
		return io.EOF
	}

	if err := s.rows.Scan(s.valuePtrs...); err != nil {
		return err
	}
	for i, value := range s.values {
		if err := s.columnInserters[i].AppendValue(value); err != nil {
			return fmt.Errorf("failed to append value to column %d (%s): %w", i, s.schema.Field(i).Name, err)
		}
	}
	return nil
}

// Close closes the current result set.
func (s *sqlRecordReaderImpl) Close() error {
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows = nil
	return err
}
