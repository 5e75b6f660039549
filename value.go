package odbc

import (
	"bytes"
	"fmt"
	"time"
)

// Kind enumerates the value kinds that can be bound to a parameter or read
// from a cell. Every switch over Kind in this module is exhaustive.
type Kind int

const (
	KindNull Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUint16
	KindFloat32
	KindFloat64
	KindString
	KindBool
	KindDate
	KindTime
	KindTimestamp
	KindBytes
)

var kindStrings = [...]string{
	KindNull:      "null",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindUint16:    "uint16",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindBool:      "bool",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindBytes:     "bytes",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindStrings) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindStrings[k]
}

// Date is a SQL DATE.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Time is a SQL TIME.
type Time struct {
	Hour   int
	Minute int
	Second int
}

// Timestamp is a SQL TIMESTAMP. Fraction is in nanoseconds.
type Timestamp struct {
	Date
	Hour     int
	Minute   int
	Second   int
	Fraction int
}

func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day) }

func (t Time) String() string { return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second) }

func (ts Timestamp) String() string {
	s := fmt.Sprintf("%s %02d:%02d:%02d", ts.Date, ts.Hour, ts.Minute, ts.Second)
	if ts.Fraction != 0 {
		s += fmt.Sprintf(".%09d", ts.Fraction)
		s = trimRight(s, '0')
	}
	return s
}

// Time returns the timestamp as a time.Time in loc.
func (ts Timestamp) Time(loc *time.Location) time.Time {
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, ts.Fraction, loc)
}

// DateOf returns the calendar date of t.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// TimeOf returns the wall clock time of t, dropping sub-second precision.
func TimeOf(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// TimestampOf converts t to a Timestamp in t's location.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{
		Date:     DateOf(t),
		Hour:     t.Hour(),
		Minute:   t.Minute(),
		Second:   t.Second(),
		Fraction: t.Nanosecond(),
	}
}

// Value is a kind-tagged SQL value. The zero Value is SQL NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
	ts   Timestamp
}

// Null returns the explicit "no value" marker.
func Null() Value { return Value{} }

func Int16(v int16) Value     { return Value{kind: KindInt16, i: int64(v)} }
func Int32(v int32) Value     { return Value{kind: KindInt32, i: int64(v)} }
func Int64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func Uint16(v uint16) Value   { return Value{kind: KindUint16, i: int64(v)} }
func Float32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func String(v string) Value   { return Value{kind: KindString, s: v} }
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Bytes copies v into a new Value.
func Bytes(v []byte) Value { return Value{kind: KindBytes, b: bytes.Clone(nonNil(v))} }

func DateValue(d Date) Value { return Value{kind: KindDate, ts: Timestamp{Date: d}} }

func TimeValue(t Time) Value {
	return Value{kind: KindTime, ts: Timestamp{Hour: t.Hour, Minute: t.Minute, Second: t.Second}}
}

func TimestampValue(ts Timestamp) Value { return Value{kind: KindTimestamp, ts: ts} }

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer payload of integer and bool kinds.
func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Str() string { return v.s }

// Bytes returns the payload of KindBytes. The slice is shared with v.
func (v Value) Bytes() []byte { return v.b }

func (v Value) BoolValue() bool { return v.i != 0 }

// Date returns the date part of KindDate and KindTimestamp values.
func (v Value) Date() Date { return v.ts.Date }

// Time returns the time part of KindTime and KindTimestamp values.
func (v Value) Time() Time { return Time{Hour: v.ts.Hour, Minute: v.ts.Minute, Second: v.ts.Second} }

func (v Value) Timestamp() Timestamp { return v.ts }

// Interface returns the value as the matching Go type, or nil for NULL.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindInt16:
		return int16(v.i)
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindUint16:
		return uint16(v.i)
	case KindFloat32:
		return float32(v.f)
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.i != 0
	case KindDate:
		return v.ts.Date
	case KindTime:
		return v.Time()
	case KindTimestamp:
		return v.ts
	case KindBytes:
		return v.b
	}
	panic(fmt.Sprintf("odbc: unhandled kind %v", v.kind))
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt16, KindInt32, KindInt64, KindUint16, KindBool:
		return v.i == o.i
	case KindFloat32, KindFloat64:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	case KindDate, KindTime, KindTimestamp:
		return v.ts == o.ts
	}
	return false
}

// ValueOf converts a Go value into a Value. nil becomes Null, time.Time
// becomes a Timestamp. int and uint are accepted when they fit in int64.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case int16:
		return Int16(t), nil
	case int32:
		return Int32(t), nil
	case int64:
		return Int64(t), nil
	case int:
		return Int64(int64(t)), nil
	case int8:
		return Int16(int16(t)), nil
	case uint8:
		return Int16(int16(t)), nil
	case uint16:
		return Uint16(t), nil
	case uint32:
		return Int64(int64(t)), nil
	case uint:
		if uint64(t) > 1<<63-1 {
			return Value{}, newError(InvalidType, "bind", "uint %d overflows int64", t)
		}
		return Int64(int64(t)), nil
	case float32:
		return Float32(t), nil
	case float64:
		return Float64(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []byte:
		return Bytes(t), nil
	case Date:
		return DateValue(t), nil
	case Time:
		return TimeValue(t), nil
	case Timestamp:
		return TimestampValue(t), nil
	case time.Time:
		return TimestampValue(TimestampOf(t)), nil
	}
	return Value{}, newError(InvalidType, "bind", "unsupported Go type %T", x)
}

func trimRight(s string, c byte) string {
	for len(s) > 0 && s[len(s)-1] == c {
		s = s[:len(s)-1]
	}
	return s
}
