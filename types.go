package odbc

import "strconv"

// DataType is an ODBC SQL data type code.
type DataType int16

// SQL data type codes as defined by ODBC.
const (
	TypeUnknown       DataType = 0
	TypeChar          DataType = 1
	TypeNumeric       DataType = 2
	TypeDecimal       DataType = 3
	TypeInteger       DataType = 4
	TypeSmallInt      DataType = 5
	TypeFloat         DataType = 6
	TypeReal          DataType = 7
	TypeDouble        DataType = 8
	TypeVarChar       DataType = 12
	TypeBoolean       DataType = 16
	TypeDate          DataType = 91
	TypeTime          DataType = 92
	TypeTimestamp     DataType = 93
	TypeLongVarChar   DataType = -1
	TypeBinary        DataType = -2
	TypeVarBinary     DataType = -3
	TypeLongVarBinary DataType = -4
	TypeBigInt        DataType = -5
	TypeTinyInt       DataType = -6
	TypeBit           DataType = -7
	TypeWChar         DataType = -8
	TypeWVarChar      DataType = -9
	TypeWLongVarChar  DataType = -10
	TypeGUID          DataType = -11
)

var dataTypeNames = map[DataType]string{
	TypeUnknown:       "UNKNOWN",
	TypeChar:          "CHAR",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeInteger:       "INTEGER",
	TypeSmallInt:      "SMALLINT",
	TypeFloat:         "FLOAT",
	TypeReal:          "REAL",
	TypeDouble:        "DOUBLE",
	TypeVarChar:       "VARCHAR",
	TypeBoolean:       "BOOLEAN",
	TypeDate:          "DATE",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
	TypeLongVarChar:   "LONGVARCHAR",
	TypeBinary:        "BINARY",
	TypeVarBinary:     "VARBINARY",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeBigInt:        "BIGINT",
	TypeTinyInt:       "TINYINT",
	TypeBit:           "BIT",
	TypeWChar:         "WCHAR",
	TypeWVarChar:      "WVARCHAR",
	TypeWLongVarChar:  "WLONGVARCHAR",
	TypeGUID:          "GUID",
}

func (t DataType) String() string {
	if s, ok := dataTypeNames[t]; ok {
		return s
	}
	return "DataType(" + strconv.Itoa(int(t)) + ")"
}

// ColumnDesc describes one result column.
type ColumnDesc struct {
	Name string
	Type DataType

	// TypeName is the data source specific type name, e.g. "int4".
	TypeName string

	// Size is the column size, or 0 when the driver does not report it.
	Size int

	Nullable bool
}

// Attribute is a keyword/value pair describing a driver.
type Attribute struct {
	Keyword string
	Value   string
}

// Driver is an installed driver as listed by the driver manager.
type Driver struct {
	Name       string
	Attributes []Attribute
}

// DataSourceInfo describes a configured data source name.
type DataSourceInfo struct {
	Name   string
	Driver string
}

// Orientation selects the row a NativeCursor fetch moves to.
type Orientation int

const (
	FetchNext Orientation = iota + 1
	FetchPrior
	FetchFirst
	FetchLast
	FetchAbsolute
	FetchRelative
)

func (o Orientation) String() string {
	switch o {
	case FetchNext:
		return "next"
	case FetchPrior:
		return "prior"
	case FetchFirst:
		return "first"
	case FetchLast:
		return "last"
	case FetchAbsolute:
		return "absolute"
	case FetchRelative:
		return "relative"
	}
	return "Orientation(" + strconv.Itoa(int(o)) + ")"
}
