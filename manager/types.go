package manager

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	odbc "github.com/lebje/go-odbc"
	"github.com/shopspring/decimal"
)

// sqlTypes maps database type names, as reported by the PostgreSQL and
// MySQL catalogs, to ODBC SQL types.
var sqlTypes = map[string]odbc.DataType{
	"BOOL":        odbc.TypeBit,
	"BOOLEAN":     odbc.TypeBit,
	"BIT":         odbc.TypeBit,
	"TINYINT":     odbc.TypeTinyInt,
	"INT2":        odbc.TypeSmallInt,
	"SMALLINT":    odbc.TypeSmallInt,
	"YEAR":        odbc.TypeSmallInt,
	"INT":         odbc.TypeInteger,
	"INT4":        odbc.TypeInteger,
	"INTEGER":     odbc.TypeInteger,
	"MEDIUMINT":   odbc.TypeInteger,
	"OID":         odbc.TypeInteger,
	"INT8":        odbc.TypeBigInt,
	"BIGINT":      odbc.TypeBigInt,
	"FLOAT4":      odbc.TypeReal,
	"REAL":        odbc.TypeReal,
	"FLOAT":       odbc.TypeReal,
	"FLOAT8":      odbc.TypeDouble,
	"DOUBLE":      odbc.TypeDouble,
	"NUMERIC":     odbc.TypeNumeric,
	"DECIMAL":     odbc.TypeDecimal,
	"CHAR":        odbc.TypeChar,
	"BPCHAR":      odbc.TypeChar,
	"VARCHAR":     odbc.TypeVarChar,
	"NAME":        odbc.TypeVarChar,
	"TEXT":        odbc.TypeLongVarChar,
	"TINYTEXT":    odbc.TypeLongVarChar,
	"MEDIUMTEXT":  odbc.TypeLongVarChar,
	"LONGTEXT":    odbc.TypeLongVarChar,
	"JSON":        odbc.TypeLongVarChar,
	"JSONB":       odbc.TypeLongVarChar,
	"BYTEA":       odbc.TypeLongVarBinary,
	"BLOB":        odbc.TypeLongVarBinary,
	"TINYBLOB":    odbc.TypeLongVarBinary,
	"MEDIUMBLOB":  odbc.TypeLongVarBinary,
	"LONGBLOB":    odbc.TypeLongVarBinary,
	"BINARY":      odbc.TypeBinary,
	"VARBINARY":   odbc.TypeVarBinary,
	"DATE":        odbc.TypeDate,
	"TIME":        odbc.TypeTime,
	"TIMETZ":      odbc.TypeTime,
	"TIMESTAMP":   odbc.TypeTimestamp,
	"TIMESTAMPTZ": odbc.TypeTimestamp,
	"DATETIME":    odbc.TypeTimestamp,
	"UUID":        odbc.TypeGUID,
}

// sqlType maps a database type name to its ODBC type. Unknown names,
// including arrays and user-defined types, are reported as VARCHAR since
// every driver can render them as text.
func sqlType(name string) odbc.DataType {
	name = strings.ToUpper(name)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "UNSIGNED ")
	if t, ok := sqlTypes[name]; ok {
		return t
	}
	return odbc.TypeVarChar
}

func isBinary(t odbc.DataType) bool {
	return t == odbc.TypeBinary || t == odbc.TypeVarBinary || t == odbc.TypeLongVarBinary
}

// canonicalDecimal renders exact numeric text the same way for every
// driver: no exponent and no trailing fractional zeros.
func canonicalDecimal(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

var (
	dateLayouts      = []string{"2006-01-02"}
	timeLayouts      = []string{"15:04:05.999999999", "15:04:05.999999999Z07:00", "15:04:05.999999999Z07"}
	timestampLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07",
		time.RFC3339Nano,
	}
)

func parseAny(s string, layouts []string) (time.Time, error) {
	var err error
	for _, l := range layouts {
		var t time.Time
		if t, err = time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// cellValue converts a value scanned by database/sql or decoded by pgx
// into an odbc.Value shaped by the column's SQL type.
func cellValue(t odbc.DataType, v any) (odbc.Value, error) {
	switch x := v.(type) {
	case nil:
		return odbc.Null(), nil
	case bool:
		return odbc.Bool(x), nil
	case int16:
		return odbc.Int16(x), nil
	case int32:
		return odbc.Int32(x), nil
	case int8:
		return integerValue(t, int64(x)), nil
	case int:
		return integerValue(t, int64(x)), nil
	case int64:
		return integerValue(t, x), nil
	case uint8:
		return integerValue(t, int64(x)), nil
	case uint16:
		return odbc.Uint16(x), nil
	case uint32:
		return odbc.Int64(int64(x)), nil
	case float32:
		return odbc.Float32(x), nil
	case float64:
		if t == odbc.TypeReal {
			return odbc.Float32(float32(x)), nil
		}
		return odbc.Float64(x), nil
	case time.Time:
		switch t {
		case odbc.TypeDate:
			return odbc.DateValue(odbc.DateOf(x)), nil
		case odbc.TypeTime:
			return odbc.TimeValue(odbc.TimeOf(x)), nil
		}
		return odbc.TimestampValue(odbc.TimestampOf(x)), nil
	case []byte:
		if isBinary(t) {
			return odbc.Bytes(x), nil
		}
		return textValue(t, string(x))
	case string:
		return textValue(t, x)
	case [16]byte:
		return odbc.String(fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])), nil
	case fmt.Stringer:
		return odbc.String(x.String()), nil
	}
	return odbc.Value{}, &odbc.DriverError{State: "HY000", Message: fmt.Sprintf("unsupported column value %T", v)}
}

func integerValue(t odbc.DataType, n int64) odbc.Value {
	switch t {
	case odbc.TypeBit:
		return odbc.Bool(n != 0)
	case odbc.TypeSmallInt, odbc.TypeTinyInt:
		return odbc.Int16(int16(n))
	case odbc.TypeInteger:
		return odbc.Int32(int32(n))
	}
	return odbc.Int64(n)
}

// textValue interprets text the driver returned for a typed column. MySQL
// hands every non-binary column to database/sql as text.
func textValue(t odbc.DataType, s string) (odbc.Value, error) {
	bad := func(err error) (odbc.Value, error) {
		return odbc.Value{}, &odbc.DriverError{State: "22018", Message: fmt.Sprintf("invalid %s text %q: %v", t, s, err)}
	}
	switch t {
	case odbc.TypeNumeric, odbc.TypeDecimal:
		d, err := canonicalDecimal(s)
		if err != nil {
			return bad(err)
		}
		return odbc.String(d), nil
	case odbc.TypeBit:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return bad(err)
		}
		return odbc.Bool(b), nil
	case odbc.TypeTinyInt, odbc.TypeSmallInt, odbc.TypeInteger, odbc.TypeBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return bad(err)
		}
		return integerValue(t, n), nil
	case odbc.TypeReal, odbc.TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bad(err)
		}
		return cellValue(t, f)
	case odbc.TypeDate:
		d, err := parseAny(s, dateLayouts)
		if err != nil {
			return bad(err)
		}
		return odbc.DateValue(odbc.DateOf(d)), nil
	case odbc.TypeTime:
		d, err := parseAny(s, timeLayouts)
		if err != nil {
			return bad(err)
		}
		return odbc.TimeValue(odbc.TimeOf(d)), nil
	case odbc.TypeTimestamp:
		d, err := parseAny(s, timestampLayouts)
		if err != nil {
			return bad(err)
		}
		return odbc.TimestampValue(odbc.TimestampOf(d)), nil
	}
	return odbc.String(s), nil
}

// argOf converts a bound value into a database/sql argument. Dates and
// times travel as ISO text, which every supported server accepts for its
// temporal types.
func argOf(v odbc.Value) any {
	switch v.Kind() {
	case odbc.KindNull:
		return nil
	case odbc.KindInt16, odbc.KindInt32, odbc.KindInt64, odbc.KindUint16:
		return v.Int()
	case odbc.KindFloat32, odbc.KindFloat64:
		return v.Float()
	case odbc.KindBool:
		return v.BoolValue()
	case odbc.KindString:
		return v.Str()
	case odbc.KindBytes:
		return v.Bytes()
	case odbc.KindDate:
		return v.Date().String()
	case odbc.KindTime:
		return v.Time().String()
	case odbc.KindTimestamp:
		return v.Timestamp().Time(time.UTC)
	}
	return nil
}
