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
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/extensions"
	"golang.org/x/exp/constraints"
)

const (
	MetaKeyDatabaseTypeName = "sql.database_type_name"
	MetaKeyColumnName       = "sql.column_name"
	MetaKeyPrecision        = "sql.precision"
	MetaKeyScale            = "sql.scale"
	MetaKeyLength           = "sql.length"
)

// maxInt64Digits is the largest decimal precision that always fits an int64.
const maxInt64Digits = 18

// TypeConverter maps JDBC result columns to Arrow and back.
type TypeConverter interface {
	// ConvertColumnType converts a result column to an Arrow type, nullable
	// flag and field metadata.
	ConvertColumnType(colType *sql.ColumnType) (arrowType arrow.DataType, nullable bool, metadata arrow.Metadata, err error)

	// ConvertSQLToArrow converts a scanned value to the Go value appended to
	// a builder of field's type. A nil result is a NULL.
	ConvertSQLToArrow(sqlValue any, field *arrow.Field) (any, error)

	// ConvertArrowToGo extracts a bind parameter from an Arrow array.
	ConvertArrowToGo(arrowArray arrow.Array, index int, field *arrow.Field) (any, error)

	// CreateInserter binds a column's builder once per result set.
	CreateInserter(field *arrow.Field, builder array.Builder) (Inserter, error)
}

// Inserter appends scanned values to one column builder.
type Inserter interface {
	AppendValue(sqlValue any) error
}

type inserterFunc func(sqlValue any) error

func (f inserterFunc) AppendValue(sqlValue any) error {
	return f(sqlValue)
}

// DefaultTypeConverter maps columns by the scan type the jdbc driver reports
// (which follows the java.sql.Types family of the column) and refines the
// result with the vendor type name and decimal size.
type DefaultTypeConverter struct{}

var (
	scanInt64      = reflect.TypeOf(int64(0))
	scanNullInt    = reflect.TypeOf(sql.NullInt64{})
	scanFloat64    = reflect.TypeOf(float64(0))
	scanNullFloat  = reflect.TypeOf(sql.NullFloat64{})
	scanBool       = reflect.TypeOf(true)
	scanNullBool   = reflect.TypeOf(sql.NullBool{})
	scanBytes      = reflect.TypeOf([]byte{})
	scanTime       = reflect.TypeOf(time.Time{})
	scanNullTime   = reflect.TypeOf(sql.NullTime{})
	timestampUTCus = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
)

// ConvertColumnType implements TypeConverter.
func (d DefaultTypeConverter) ConvertColumnType(colType *sql.ColumnType) (arrow.DataType, bool, arrow.Metadata, error) {
	nullable, ok := colType.Nullable()
	if !ok {
		nullable = true
	}

	metadataMap := map[string]string{
		MetaKeyDatabaseTypeName: colType.DatabaseTypeName(),
		MetaKeyColumnName:       colType.Name(),
	}
	if length, ok := colType.Length(); ok {
		metadataMap[MetaKeyLength] = strconv.FormatInt(length, 10)
	}
	precision, scale, hasDecimal := colType.DecimalSize()
	if hasDecimal {
		metadataMap[MetaKeyPrecision] = strconv.FormatInt(precision, 10)
		metadataMap[MetaKeyScale] = strconv.FormatInt(scale, 10)
	}

	arrowType, err := arrowTypeFor(strings.ToUpper(colType.DatabaseTypeName()), colType.ScanType(), precision, scale, hasDecimal)
	if err != nil {
		return nil, false, arrow.Metadata{}, fmt.Errorf("column %q: %w", colType.Name(), err)
	}
	return arrowType, nullable, arrow.MetadataFrom(metadataMap), nil
}

// arrowTypeFor picks the Arrow type of a column from its scan type, vendor
// type name and, for decimals, precision and scale.
func arrowTypeFor(typeName string, scanType reflect.Type, precision, scale int64, hasDecimal bool) (arrow.DataType, error) {
	switch scanType {
	case scanInt64, scanNullInt:
		switch typeName {
		case "TINYINT", "SMALLINT", "INT2":
			return arrow.PrimitiveTypes.Int16, nil
		case "INT", "INTEGER", "INT4":
			return arrow.PrimitiveTypes.Int32, nil
		}
		return arrow.PrimitiveTypes.Int64, nil
	case scanFloat64, scanNullFloat:
		if typeName == "REAL" || typeName == "FLOAT4" {
			return arrow.PrimitiveTypes.Float32, nil
		}
		return arrow.PrimitiveTypes.Float64, nil
	case scanBool, scanNullBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case scanBytes:
		return arrow.BinaryTypes.Binary, nil
	case scanTime, scanNullTime:
		return temporalType(typeName), nil
	}

	if hasDecimal {
		return decimalType(precision, scale)
	}
	switch typeName {
	case "JSON", "JSONB":
		return extensions.NewJSONType(arrow.BinaryTypes.String)
	}
	// TODO (https://github.com/adbc-drivers/driverbase-go/issues/30):
	// Consider using the Opaque extension type instead of treating unknown types as strings.
	return arrow.BinaryTypes.String, nil
}

func temporalType(typeName string) arrow.DataType {
	switch {
	case typeName == "DATE":
		return arrow.FixedWidthTypes.Date32
	case strings.Contains(typeName, "TIMESTAMP") || strings.Contains(typeName, "DATETIME"):
		if strings.Contains(typeName, "ZONE") || strings.HasSuffix(typeName, "TZ") {
			return timestampUTCus
		}
		return arrow.FixedWidthTypes.Timestamp_us
	case strings.Contains(typeName, "TIME"):
		return arrow.FixedWidthTypes.Time64us
	default:
		return arrow.FixedWidthTypes.Timestamp_us
	}
}

// decimalType maps NUMERIC/DECIMAL columns. Drivers that report no usable
// precision (Oracle NUMBER reports 0 and a negative scale) get strings.
func decimalType(precision, scale int64) (arrow.DataType, error) {
	switch {
	case precision <= 0 || scale < 0 || scale > precision || precision > 76:
		return arrow.BinaryTypes.String, nil
	case scale == 0 && precision <= maxInt64Digits:
		return arrow.PrimitiveTypes.Int64, nil
	}
	arrowType, err := arrow.NarrowestDecimalType(int32(precision), int32(scale))
	if err != nil {
		return nil, fmt.Errorf("invalid decimal precision/scale (%d, %d): %w", precision, scale, err)
	}
	return arrowType, nil
}

// unwrap unwraps SQL nullable types using the driver.Valuer interface.
func unwrap(val any) (any, error) {
	if v, ok := val.(driver.Valuer); ok {
		return v.Value()
	}
	return val, nil
}

// convertToNumericType converts a scanned value to the numeric type T.
// Decimal columns mapped to integers arrive as text.
func convertToNumericType[T constraints.Integer | constraints.Float](val any) (T, error) {
	var zero T
	switch v := val.(type) {
	case int64:
		return T(v), nil
	case float64:
		return T(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumber[T](string(v))
	case string:
		return parseNumber[T](v)
	default:
		return zero, fmt.Errorf("cannot convert %T to %T", val, zero)
	}
}

func parseNumber[T constraints.Integer | constraints.Float](s string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, fmt.Errorf("cannot convert %q to %T: %w", s, zero, err)
		}
		return T(parsed), nil
	default:
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, fmt.Errorf("cannot convert %q to %T: %w", s, zero, err)
		}
		return T(parsed), nil
	}
}

func convertToBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	default:
		s := fmt.Sprint(val)
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool: %w", s, err)
		}
		return b, nil
	}
}

func convertToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

func convertToBinary(val any) []byte {
	switch v := val.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return fmt.Append(nil, val)
	}
}

// convertToTime accepts the time.Time the jdbc driver produces for temporal
// columns, or the raw text when the driver's format was not recognized.
func convertToTime(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to a time", val)
	}
}

func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
		"15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse time string: %q", s)
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// ConvertSQLToArrow implements TypeConverter.
func (d DefaultTypeConverter) ConvertSQLToArrow(sqlValue any, field *arrow.Field) (any, error) {
	unwrapped, err := unwrap(sqlValue)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap value: %w", err)
	}
	if unwrapped == nil {
		return nil, nil
	}

	switch field.Type.(type) {
	case *arrow.Int8Type:
		return convertToNumericType[int8](unwrapped)
	case *arrow.Int16Type:
		return convertToNumericType[int16](unwrapped)
	case *arrow.Int32Type:
		return convertToNumericType[int32](unwrapped)
	case *arrow.Int64Type:
		return convertToNumericType[int64](unwrapped)
	case *arrow.Float32Type:
		return convertToNumericType[float32](unwrapped)
	case *arrow.Float64Type:
		return convertToNumericType[float64](unwrapped)
	case *arrow.BooleanType:
		return convertToBool(unwrapped)
	case *arrow.StringType, *arrow.LargeStringType, *arrow.StringViewType:
		return convertToString(unwrapped), nil
	case *arrow.BinaryType, *arrow.LargeBinaryType, *arrow.BinaryViewType:
		return convertToBinary(unwrapped), nil
	case *arrow.Date32Type:
		t, err := convertToTime(unwrapped)
		if err != nil {
			return nil, err
		}
		return arrow.Date32FromTime(t), nil
	case *arrow.Time64Type:
		t, err := convertToTime(unwrapped)
		if err != nil {
			return nil, err
		}
		return sinceMidnight(t), nil
	case *arrow.TimestampType:
		return convertToTime(unwrapped)
	case *arrow.Decimal32Type, *arrow.Decimal64Type, *arrow.Decimal128Type, *arrow.Decimal256Type:
		return convertToString(unwrapped), nil
	default:
		return unwrapped, nil
	}
}

type numericBuilder[T constraints.Integer | constraints.Float] interface {
	array.Builder
	Append(T)
}

func numericInserter[T constraints.Integer | constraints.Float](b numericBuilder[T], convert func(any) (any, error)) Inserter {
	return inserterFunc(func(v any) error {
		converted, err := convert(v)
		if err != nil || converted == nil {
			if err == nil {
				b.AppendNull()
			}
			return err
		}
		b.Append(converted.(T))
		return nil
	})
}

// CreateInserter implements TypeConverter. The type switch runs once per
// column; AppendValue only converts and appends.
func (d DefaultTypeConverter) CreateInserter(field *arrow.Field, builder array.Builder) (Inserter, error) {
	convert := func(v any) (any, error) {
		return d.ConvertSQLToArrow(v, field)
	}

	switch b := builder.(type) {
	case *array.Int8Builder:
		return numericInserter[int8](b, convert), nil
	case *array.Int16Builder:
		return numericInserter[int16](b, convert), nil
	case *array.Int32Builder:
		return numericInserter[int32](b, convert), nil
	case *array.Int64Builder:
		return numericInserter[int64](b, convert), nil
	case *array.Float32Builder:
		return numericInserter[float32](b, convert), nil
	case *array.Float64Builder:
		return numericInserter[float64](b, convert), nil
	}

	var appendFn func(any)
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		appendFn = func(v any) { b.Append(v.(bool)) }
	case *array.StringBuilder:
		appendFn = func(v any) { b.Append(v.(string)) }
	case *array.BinaryBuilder:
		appendFn = func(v any) { b.Append(v.([]byte)) }
	case *array.Date32Builder:
		appendFn = func(v any) { b.Append(v.(arrow.Date32)) }
	case *array.Time64Builder:
		unit := field.Type.(*arrow.Time64Type).Unit
		appendFn = func(v any) { b.Append(arrow.Time64(v.(time.Duration) / unit.Multiplier())) }
	case *array.TimestampBuilder:
		utc := field.Type.(*arrow.TimestampType).TimeZone != ""
		appendFn = func(v any) {
			t := v.(time.Time)
			if utc {
				t = t.UTC()
			}
			b.AppendTime(t)
		}
	}

	return inserterFunc(func(v any) error {
		converted, err := convert(v)
		if err != nil {
			return err
		}
		if converted == nil {
			builder.AppendNull()
			return nil
		}
		if appendFn != nil {
			appendFn(converted)
			return nil
		}
		// Decimals and extension types parse their text form.
		return builder.AppendValueFromString(convertToString(converted))
	}), nil
}

// ConvertArrowToGo implements TypeConverter. Values are returned in the forms
// database/sql accepts as driver arguments.
func (d DefaultTypeConverter) ConvertArrowToGo(arrowArray arrow.Array, index int, field *arrow.Field) (any, error) {
	if arrowArray.IsNull(index) {
		return nil, nil
	}

	switch a := arrowArray.(type) {
	case *array.Int8:
		return int64(a.Value(index)), nil
	case *array.Int16:
		return int64(a.Value(index)), nil
	case *array.Int32:
		return int64(a.Value(index)), nil
	case *array.Int64:
		return a.Value(index), nil
	case *array.Uint8:
		return int64(a.Value(index)), nil
	case *array.Uint16:
		return int64(a.Value(index)), nil
	case *array.Uint32:
		return int64(a.Value(index)), nil
	case *array.Uint64:
		return a.Value(index), nil
	case *array.Float32:
		return float64(a.Value(index)), nil
	case *array.Float64:
		return a.Value(index), nil
	case *array.Boolean:
		return a.Value(index), nil
	case *array.String:
		return a.Value(index), nil
	case *array.LargeString:
		return a.Value(index), nil
	case *array.StringView:
		return a.Value(index), nil
	case *array.Binary:
		return a.Value(index), nil
	case *array.LargeBinary:
		return a.Value(index), nil
	case *array.BinaryView:
		return a.Value(index), nil
	case *array.FixedSizeBinary:
		return a.Value(index), nil
	case *array.Date32:
		return a.Value(index).ToTime(), nil
	case *array.Date64:
		return a.Value(index).ToTime(), nil
	case *array.Time32:
		return a.Value(index).ToTime(a.DataType().(*arrow.Time32Type).Unit), nil
	case *array.Time64:
		return a.Value(index).ToTime(a.DataType().(*arrow.Time64Type).Unit), nil
	case *array.Timestamp:
		timestampType := a.DataType().(*arrow.TimestampType)
		tz, err := timestampType.GetZone()
		if err != nil {
			return nil, err
		}
		return a.Value(index).ToTime(timestampType.Unit).In(tz), nil
	default:
		// Decimals bind as their text form.
		return a.ValueStr(index), nil
	}
}

// buildArrowSchemaFromColumnTypes creates an Arrow schema from SQL column types using the type converter
func buildArrowSchemaFromColumnTypes(columnTypes []*sql.ColumnType, typeConverter TypeConverter) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(columnTypes))
	for i, colType := range columnTypes {
		arrowType, nullable, metadata, err := typeConverter.ConvertColumnType(colType)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{
			Name:     colType.Name(),
			Type:     arrowType,
			Nullable: nullable,
			Metadata: metadata,
		}
	}
	return arrow.NewSchema(fields, nil), nil
}
