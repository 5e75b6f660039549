package odbc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errNoConversion = errors.New("no conversion")

func toInt64(v Value) (int64, error) {
	switch v.kind {
	case KindInt16, KindInt32, KindInt64, KindUint16, KindBool:
		return v.i, nil
	case KindFloat32, KindFloat64:
		if math.IsNaN(v.f) || v.f >= math.MaxInt64 || v.f < math.MinInt64 {
			return 0, fmt.Errorf("%v out of range", v.f)
		}
		return int64(v.f), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", v.s)
		}
		d = d.Truncate(0)
		if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
			return 0, fmt.Errorf("%q out of range", v.s)
		}
		return d.IntPart(), nil
	case KindNull, KindDate, KindTime, KindTimestamp, KindBytes:
		return 0, errNoConversion
	}
	return 0, errNoConversion
}

func toIntRange(v Value, lo, hi int64) (int64, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func toFloat64(v Value) (float64, error) {
	switch v.kind {
	case KindInt16, KindInt32, KindInt64, KindUint16, KindBool:
		return float64(v.i), nil
	case KindFloat32, KindFloat64:
		return v.f, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", v.s)
		}
		return f, nil
	case KindNull, KindDate, KindTime, KindTimestamp, KindBytes:
		return 0, errNoConversion
	}
	return 0, errNoConversion
}

func toFloat32(v Value) (float32, error) {
	f, err := toFloat64(v)
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%v out of float32 range", f)
	}
	return float32(f), nil
}

func toBool(v Value) (bool, error) {
	switch v.kind {
	case KindBool:
		return v.i != 0, nil
	case KindInt16, KindInt32, KindInt64, KindUint16:
		switch v.i {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("%d is not 0 or 1", v.i)
	case KindFloat32, KindFloat64:
		switch v.f {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("%v is not 0 or 1", v.f)
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v.s)
		}
		return b, nil
	case KindNull, KindDate, KindTime, KindTimestamp, KindBytes:
		return false, errNoConversion
	}
	return false, errNoConversion
}

// toString follows the ODBC rules for converting to character data: every
// kind converts, binary data is rendered as upper-case hex.
func toString(v Value) (string, error) {
	switch v.kind {
	case KindString:
		return v.s, nil
	case KindInt16, KindInt32, KindInt64, KindUint16:
		return strconv.FormatInt(v.i, 10), nil
	case KindBool:
		if v.i != 0 {
			return "1", nil
		}
		return "0", nil
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32), nil
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case KindDate:
		return v.ts.Date.String(), nil
	case KindTime:
		return v.Time().String(), nil
	case KindTimestamp:
		return v.ts.String(), nil
	case KindBytes:
		return strings.ToUpper(hex.EncodeToString(v.b)), nil
	case KindNull:
		return "", errNoConversion
	}
	return "", errNoConversion
}

func toBytes(v Value) ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return append([]byte{}, v.b...), nil
	case KindString:
		return []byte(v.s), nil
	case KindNull, KindInt16, KindInt32, KindInt64, KindUint16, KindFloat32, KindFloat64,
		KindBool, KindDate, KindTime, KindTimestamp:
		return nil, errNoConversion
	}
	return nil, errNoConversion
}

var (
	dateLayouts      = []string{"2006-01-02"}
	timeLayouts      = []string{"15:04:05.999999999", "15:04:05"}
	timestampLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02",
	}
)

func parseIn(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date/time literal", s)
}

func toDate(v Value) (Date, error) {
	switch v.kind {
	case KindDate, KindTimestamp:
		return v.ts.Date, nil
	case KindString:
		t, err := parseIn(v.s, append(dateLayouts, timestampLayouts...))
		if err != nil {
			return Date{}, err
		}
		return DateOf(t), nil
	case KindNull, KindInt16, KindInt32, KindInt64, KindUint16, KindFloat32, KindFloat64,
		KindBool, KindTime, KindBytes:
		return Date{}, errNoConversion
	}
	return Date{}, errNoConversion
}

func toTime(v Value) (Time, error) {
	switch v.kind {
	case KindTime, KindTimestamp:
		return v.Time(), nil
	case KindString:
		t, err := parseIn(v.s, timeLayouts)
		if err != nil {
			if t, err = parseIn(v.s, timestampLayouts); err != nil {
				return Time{}, err
			}
		}
		return TimeOf(t), nil
	case KindNull, KindInt16, KindInt32, KindInt64, KindUint16, KindFloat32, KindFloat64,
		KindBool, KindDate, KindBytes:
		return Time{}, errNoConversion
	}
	return Time{}, errNoConversion
}

func toTimestamp(v Value) (Timestamp, error) {
	switch v.kind {
	case KindTimestamp:
		return v.ts, nil
	case KindDate:
		return Timestamp{Date: v.ts.Date}, nil
	case KindString:
		t, err := parseIn(v.s, timestampLayouts)
		if err != nil {
			return Timestamp{}, err
		}
		return TimestampOf(t), nil
	case KindNull, KindInt16, KindInt32, KindInt64, KindUint16, KindFloat32, KindFloat64,
		KindBool, KindTime, KindBytes:
		return Timestamp{}, errNoConversion
	}
	return Timestamp{}, errNoConversion
}

func toDecimal(v Value) (decimal.Decimal, error) {
	switch v.kind {
	case KindInt16, KindInt32, KindInt64, KindUint16, KindBool:
		return decimal.NewFromInt(v.i), nil
	case KindFloat32:
		return decimal.NewFromString(strconv.FormatFloat(v.f, 'g', -1, 32))
	case KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return decimal.Decimal{}, fmt.Errorf("%v has no decimal representation", v.f)
		}
		return decimal.NewFromFloat(v.f), nil
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.s))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%q is not numeric", v.s)
		}
		return d, nil
	case KindNull, KindDate, KindTime, KindTimestamp, KindBytes:
		return decimal.Decimal{}, errNoConversion
	}
	return decimal.Decimal{}, errNoConversion
}
