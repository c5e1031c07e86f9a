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
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ParamIterator walks a bound Arrow stream one row at a time, crossing
// batch boundaries, and converts each row into database/sql arguments.
type ParamIterator struct {
	reader        array.RecordReader
	typeConverter TypeConverter
	batch         arrow.RecordBatch // owned by reader, valid until reader.Next
	row           int               // next row to read from batch
	index         int64             // rows produced so far
	args          []any
	err           error
}

// NewParamIterator returns an error if reader is nil.
func NewParamIterator(reader array.RecordReader, typeConverter TypeConverter) (*ParamIterator, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	return &ParamIterator{
		reader:        reader,
		typeConverter: typeConverter,
		args:          make([]any, reader.Schema().NumFields()),
	}, nil
}

// Next converts the next row. It returns false when the stream is
// exhausted or a conversion failed; check Err.
func (it *ParamIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.batch == nil || it.row >= int(it.batch.NumRows()) {
		if !it.reader.Next() {
			it.err = it.reader.Err()
			it.batch = nil
			return false
		}
		it.batch = it.reader.RecordBatch()
		it.row = 0
	}

	schema := it.batch.Schema()
	for col := range it.args {
		field := schema.Field(col)
		value, err := it.typeConverter.ConvertArrowToGo(it.batch.Column(col), it.row, &field)
		if err != nil {
			it.err = fmt.Errorf("failed to convert row %d, col %d (%s): %w", it.index, col, field.Name, err)
			return false
		}
		it.args[col] = value
	}
	it.row++
	it.index++
	return true
}

// Args returns the current row. The slice is reused by Next.
func (it *ParamIterator) Args() []any {
	return it.args
}

// Rows returns the number of rows produced so far.
func (it *ParamIterator) Rows() int64 {
	return it.index
}

// Err returns the first error encountered during iteration.
func (it *ParamIterator) Err() error {
	return it.err
}
