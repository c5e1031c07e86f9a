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
	"strconv"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const (
	// OptionKeyBatchSize controls how many rows to accumulate in a record batch
	OptionKeyBatchSize = "adbc.statement.batch_size"

	defaultBatchSize = 1000
)

// statementImpl implements the ADBC Statement interface on top of database/sql.
type statementImpl struct {
	driverbase.StatementImplBase

	conn  *LoggingConn
	alloc memory.Allocator
	query string
	// stmt holds the prepared statement, if Prepare() was called
	stmt *LoggingStmt
	// boundStream holds bound parameters until the next execution
	boundStream   array.RecordReader
	batchSize     int
	typeConverter TypeConverter
}

// Base returns the embedded StatementImplBase for driverbase plumbing
func (s *statementImpl) Base() *driverbase.StatementImplBase {
	return &s.StatementImplBase
}

func newStatement(c *connectionImpl) adbc.Statement {
	base := driverbase.NewStatementImplBase(&c.ConnectionImplBase, c.ErrorHelper)
	return driverbase.NewStatement(&statementImpl{
		StatementImplBase: base,
		conn:              c.conn,
		alloc:             c.alloc,
		batchSize:         defaultBatchSize,
		typeConverter:     c.typeConverter,
	})
}

func (s *statementImpl) releaseBound() {
	if s.boundStream != nil {
		s.boundStream.Release()
		s.boundStream = nil
	}
}

// SetSqlQuery stores the SQL text, dropping any prepared statement and
// bound parameters.
func (s *statementImpl) SetSqlQuery(query string) error {
	if s.stmt != nil {
		if err := s.stmt.Close(); err != nil {
			return s.Base().ErrorHelper.WrapIO(err, "failed to close prepared statement")
		}
		s.stmt = nil
	}
	s.releaseBound()
	s.query = query
	return nil
}

// SetOption sets a string option on this statement
func (s *statementImpl) SetOption(key, val string) error {
	switch key {
	case OptionKeyBatchSize:
		size, err := strconv.Atoi(val)
		if err != nil {
			return s.Base().ErrorHelper.InvalidArgument("invalid batch size: %v", err)
		}
		return s.SetBatchSize(size)
	default:
		return s.Base().ErrorHelper.NotImplemented("unsupported option: %s", key)
	}
}

// SetBatchSize configures the batch size for streaming operations
func (s *statementImpl) SetBatchSize(size int) error {
	if size <= 0 {
		return s.Base().ErrorHelper.InvalidArgument("batch size must be positive")
	}
	s.batchSize = size
	return nil
}

// Bind binds a single record of parameters.
func (s *statementImpl) Bind(ctx context.Context, record arrow.RecordBatch) error {
	if record == nil {
		return s.Base().ErrorHelper.InvalidArgument("record cannot be nil")
	}
	s.releaseBound()
	reader, err := array.NewRecordReader(record.Schema(), []arrow.RecordBatch{record})
	if err != nil {
		return s.Base().ErrorHelper.WrapInvalidArgument(err, "failed to bind record")
	}
	s.boundStream = reader
	return nil
}

// BindStream binds a stream of parameter rows; each row is one execution.
func (s *statementImpl) BindStream(ctx context.Context, stream array.RecordReader) error {
	if stream == nil {
		return s.Base().ErrorHelper.InvalidArgument("stream cannot be nil")
	}
	s.releaseBound()
	stream.Retain()
	s.boundStream = stream
	return nil
}

func (s *statementImpl) Prepare(ctx context.Context) error {
	if s.query == "" {
		return s.Base().ErrorHelper.InvalidArgument("no query to prepare")
	}
	if s.stmt != nil {
		if err := s.stmt.Close(); err != nil {
			return s.Base().ErrorHelper.WrapIO(err, "failed to close statement")
		}
		s.stmt = nil
	}
	stmt, err := s.conn.PrepareContext(ctx, s.query)
	if err != nil {
		return s.Base().ErrorHelper.WrapIO(err, "failed to prepare statement")
	}
	s.stmt = stmt
	return nil
}

// ExecuteUpdate runs DML/DDL once, or once per bound parameter row, and
// returns the total rows affected.
func (s *statementImpl) ExecuteUpdate(ctx context.Context) (int64, error) {
	if s.stmt == nil && s.query == "" {
		return -1, s.Base().ErrorHelper.InvalidArgument("no SQL statement provided")
	}
	if s.boundStream != nil {
		return s.executeBulkUpdate(ctx)
	}

	var res sql.Result
	var err error
	if s.stmt != nil {
		res, err = s.stmt.ExecContext(ctx)
	} else {
		res, err = s.conn.ExecContext(ctx, s.query)
	}
	if err != nil {
		return -1, s.Base().ErrorHelper.WrapIO(err, "failed to execute statement")
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return -1, s.Base().ErrorHelper.WrapIO(err, "failed to get rows affected")
	}
	return rowsAffected, nil
}

// executeBulkUpdate executes the statement once per bound row, consuming
// the bound stream.
func (s *statementImpl) executeBulkUpdate(ctx context.Context) (totalAffected int64, err error) {
	stream := s.boundStream
	s.boundStream = nil
	defer stream.Release()

	stmt := s.stmt
	if stmt == nil {
		if stmt, err = s.conn.PrepareContext(ctx, s.query); err != nil {
			return -1, s.Base().ErrorHelper.WrapIO(err, "failed to prepare statement for batch execution")
		}
		defer func() {
			err = errors.Join(err, stmt.Close())
		}()
	}

	params, err := NewParamIterator(stream, s.typeConverter)
	if err != nil {
		return -1, s.Base().ErrorHelper.WrapInvalidArgument(err, "failed to read bound parameters")
	}
	for params.Next() {
		result, err := stmt.ExecContext(ctx, params.Args()...)
		if err != nil {
			return totalAffected, s.Base().ErrorHelper.WrapIO(err, "failed to execute statement for parameter row %d", params.Rows()-1)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return totalAffected, s.Base().ErrorHelper.WrapIO(err, "failed to get rows affected")
		}
		totalAffected += affected
	}
	if err := params.Err(); err != nil {
		return totalAffected, s.Base().ErrorHelper.WrapInvalidData(err, "failed to read bound parameters")
	}
	return totalAffected, nil
}

// ExecuteQuery runs the query, once per bound parameter row if parameters
// are bound, and streams the rows as Arrow records.
func (s *statementImpl) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	if s.query == "" {
		return nil, -1, s.Base().ErrorHelper.InvalidArgument("no query set")
	}

	// The reader takes ownership of the bound parameters.
	params := s.boundStream
	s.boundStream = nil

	impl := &sqlRecordReaderImpl{
		conn:          s.conn,
		query:         s.query,
		stmt:          s.stmt,
		typeConverter: s.typeConverter,
	}
	reader := &driverbase.BaseRecordReader{}
	if err := reader.Init(ctx, s.alloc, params, int64(s.batchSize), impl); err != nil {
		return nil, -1, s.Base().ErrorHelper.WrapIO(err, "failed to execute query")
	}
	return reader, -1, nil
}

// ExecuteSchema runs the query and discards its rows; JDBC result metadata
// is only available from an executed statement.
func (s *statementImpl) ExecuteSchema(ctx context.Context) (schema *arrow.Schema, err error) {
	if s.query == "" {
		return nil, s.Base().ErrorHelper.InvalidArgument("no query set")
	}

	var rows *LoggingRows
	if s.stmt != nil {
		rows, err = s.stmt.QueryContext(ctx)
	} else {
		rows, err = s.conn.QueryContext(ctx, s.query)
	}
	if err != nil {
		return nil, s.Base().ErrorHelper.WrapIO(err, "failed to execute query")
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, s.Base().ErrorHelper.WrapIO(err, "failed to get column types")
	}
	schema, err = buildArrowSchemaFromColumnTypes(columnTypes, s.typeConverter)
	if err != nil {
		return nil, s.Base().ErrorHelper.WrapInternal(err, "failed to build Arrow schema")
	}
	return schema, nil
}

// Close shuts down the prepared stmt (if any) and releases bound resources
func (s *statementImpl) Close() error {
	s.releaseBound()
	if s.stmt != nil {
		err := s.stmt.Close()
		s.stmt = nil
		if err != nil {
			return s.Base().ErrorHelper.WrapIO(err, "failed to close prepared statement")
		}
	}
	return nil
}

// ExecutePartitions handles partitioned execution; not supported here
func (s *statementImpl) ExecutePartitions(context.Context) (*arrow.Schema, adbc.Partitions, int64, error) {
	err := s.Base().ErrorHelper.NotImplemented("ExecutePartitions not supported")
	return nil, adbc.Partitions{}, 0, err
}

// GetParameterSchema is not supported: database/sql does not expose
// java.sql.ParameterMetaData.
func (s *statementImpl) GetParameterSchema() (*arrow.Schema, error) {
	return nil, s.Base().ErrorHelper.NotImplemented("GetParameterSchema not supported")
}

// SetSubstraitPlan sets the Substrait plan on the statement; not supported here.
func (s *statementImpl) SetSubstraitPlan([]byte) error {
	return s.Base().ErrorHelper.NotImplemented("SetSubstraitPlan not supported")
}
