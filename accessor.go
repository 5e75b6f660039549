package odbc

import (
	"database/sql"
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// read is the single read path of every typed accessor. A NULL cell becomes
// an invalid sql.Null; conversion failures become InvalidType.
func read[T any](r *Result, op string, col Column, conv func(Value) (T, error)) (sql.Null[T], error) {
	v, d, err := r.cell(op, col)
	if err != nil {
		if KindOf(err) == NullAccess {
			return sql.Null[T]{}, nil
		}
		return sql.Null[T]{}, err
	}
	out, err := conv(v)
	if err != nil {
		e := &Error{Kind: InvalidType, Op: op}
		if errors.Is(err, errNoConversion) {
			e.Message = "cannot convert " + d.Type.String() + " column " + col.String() + " holding " + v.kind.String()
		} else {
			e.Message = "column " + col.String() + ": " + err.Error()
		}
		return sql.Null[T]{}, e
	}
	return sql.Null[T]{V: out, Valid: true}, nil
}

// The typed accessors read col in the current row. A NULL cell is returned
// with Valid unset; a value out of the target's range is an InvalidType
// error.

func (r *Result) Int16(col Column) (sql.Null[int16], error) {
	return read(r, "get int16", col, func(v Value) (int16, error) {
		n, err := toIntRange(v, math.MinInt16, math.MaxInt16)
		return int16(n), err
	})
}

func (r *Result) Int32(col Column) (sql.Null[int32], error) {
	return read(r, "get int32", col, func(v Value) (int32, error) {
		n, err := toIntRange(v, math.MinInt32, math.MaxInt32)
		return int32(n), err
	})
}

func (r *Result) Int64(col Column) (sql.Null[int64], error) {
	return read(r, "get int64", col, toInt64)
}

func (r *Result) Uint16(col Column) (sql.Null[uint16], error) {
	return read(r, "get uint16", col, func(v Value) (uint16, error) {
		n, err := toIntRange(v, 0, math.MaxUint16)
		return uint16(n), err
	})
}

func (r *Result) Float32(col Column) (sql.Null[float32], error) {
	return read(r, "get float", col, toFloat32)
}

func (r *Result) Float64(col Column) (sql.Null[float64], error) {
	return read(r, "get double", col, toFloat64)
}

func (r *Result) Bool(col Column) (sql.Null[bool], error) {
	return read(r, "get bool", col, toBool)
}

// String reads col as character data.
func (r *Result) String(col Column) (sql.Null[string], error) {
	return read(r, "get string", col, toString)
}

// Bytes reads col as binary data. The returned slice is owned by the caller.
func (r *Result) Bytes(col Column) (sql.Null[[]byte], error) {
	return read(r, "get bytes", col, toBytes)
}

func (r *Result) Date(col Column) (sql.Null[Date], error) {
	return read(r, "get date", col, toDate)
}

func (r *Result) Time(col Column) (sql.Null[Time], error) {
	return read(r, "get time", col, toTime)
}

func (r *Result) Timestamp(col Column) (sql.Null[Timestamp], error) {
	return read(r, "get timestamp", col, toTimestamp)
}

// Decimal reads col as an exact decimal, for NUMERIC and DECIMAL columns.
func (r *Result) Decimal(col Column) (sql.Null[decimal.Decimal], error) {
	return read(r, "get decimal", col, toDecimal)
}

// Value returns the raw cell in whatever kind the driver produced. NULL is
// returned as a KindNull value.
func (r *Result) Value(col Column) (Value, error) {
	v, _, err := r.cell("get value", col)
	if err != nil {
		if KindOf(err) == NullAccess {
			return Null(), nil
		}
		return Value{}, err
	}
	if v.kind == KindBytes {
		v.b = append([]byte{}, v.b...)
	}
	return v, nil
}
