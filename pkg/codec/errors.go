package codec

import "github.com/cuemby/relkv/pkg/rerr"

// ErrOutOfRange reports a value that cannot be represented in the field's
// declared type (e.g. an int64 that overflows int32).
func ErrOutOfRange(kind Kind, v any) error {
	return rerr.New(rerr.CodeValueOutOfRange, "value %v out of range for %v", v, kind)
}

// ErrInvalidDecimal reports a decimal value that cannot be represented
// within its declared (precision, scale).
func ErrInvalidDecimal(spec DecimalSpec) error {
	return rerr.New(rerr.CodeInvalidDecimal, "value does not fit decimal(%d,%d)", spec.Precision, spec.Scale)
}

// ErrTooLong reports a varlen value exceeding its declared length bound.
func ErrTooLong(kind Kind, length, limit int) error {
	return rerr.New(rerr.CodeValueTooLong, "%v value of length %d exceeds limit %d", kind, length, limit)
}

// ErrUnderrun reports a decode that ran out of input bytes mid-value.
var ErrUnderrun = rerr.New(rerr.CodeInternal, "stream underrun while decoding")
