package codec

// Kind identifies the logical type of a field for encode/decode purposes.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindBool
	KindDate
	KindTimeOfDay
	KindTimeOfDayWithOffset
	KindTimePoint
	KindTimePointWithOffset
	KindChar    // fixed-length text
	KindVarchar // variable-length text
	KindVarbinary
	KindBlobRef
	KindClobRef
)

// Direction selects ascending or descending encode order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// DecimalSpec carries the declared (precision, scale) for a decimal field.
type DecimalSpec struct {
	Precision int
	Scale     int
}

// FieldType describes everything codec needs to encode/decode one field.
type FieldType struct {
	Kind     Kind
	Nullable bool
	Decimal  DecimalSpec // only meaningful when Kind == KindDecimal
	Length   int         // declared length for Char/Varchar/Varbinary, 0 = unbounded
}
