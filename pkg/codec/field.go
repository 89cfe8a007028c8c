package codec

// Value is a tagged union holding one decoded field value, used wherever
// code needs to move a value between the wire encoding and the record
// buffer / operator evaluation layers without redundant type-specific
// plumbing.
type Value struct {
	Kind Kind
	Null bool

	I64   int64   // Int8/16/32/64, Bool (0/1), Date (days)
	F64   float64 // Float32/64
	Dec   Decimal
	Bytes []byte // Char/Varchar/Varbinary/BlobRef/ClobRef payload
	TOD   TimeOfDay
	TP    TimePoint
	Off   int16 // minute offset for the *WithOffset kinds
}

// EncodeValue dispatches to the Kind-specific encoder. Returns false,nil on
// overflow (caller must grow its sink and retry the whole field).
func EncodeValue(sink Sink, ft FieldType, dir Direction, v Value) (bool, error) {
	switch ft.Kind {
	case KindInt8:
		return EncodeInt8(sink, dir, ft.Nullable, v.Null, int8(v.I64)), nil
	case KindInt16:
		return EncodeInt16(sink, dir, ft.Nullable, v.Null, int16(v.I64)), nil
	case KindInt32:
		return EncodeInt32(sink, dir, ft.Nullable, v.Null, int32(v.I64)), nil
	case KindInt64:
		return EncodeInt64(sink, dir, ft.Nullable, v.Null, v.I64), nil
	case KindBool:
		return EncodeBool(sink, dir, ft.Nullable, v.Null, v.I64 != 0), nil
	case KindFloat32:
		return EncodeFloat32(sink, dir, ft.Nullable, v.Null, float32(v.F64)), nil
	case KindFloat64:
		return EncodeFloat64(sink, dir, ft.Nullable, v.Null, v.F64), nil
	case KindDecimal:
		return EncodeDecimal(sink, dir, ft.Nullable, v.Null, ft.Decimal, v.Dec)
	case KindDate:
		return EncodeDate(sink, dir, ft.Nullable, v.Null, Date{DaysSinceEpoch: v.I64}), nil
	case KindTimeOfDay:
		return EncodeTimeOfDay(sink, dir, ft.Nullable, v.Null, v.TOD)
	case KindTimeOfDayWithOffset:
		return EncodeTimeOfDayWithOffset(sink, dir, ft.Nullable, v.Null, TimeOfDayWithOffset{TimeOfDay: v.TOD, OffsetMinutes: v.Off})
	case KindTimePoint:
		return EncodeTimePoint(sink, dir, ft.Nullable, v.Null, v.TP)
	case KindTimePointWithOffset:
		return EncodeTimePointWithOffset(sink, dir, ft.Nullable, v.Null, TimePointWithOffset{TimePoint: v.TP, OffsetMinutes: v.Off})
	case KindChar:
		return encodeFixedChar(sink, ft, dir, v)
	case KindVarchar, KindVarbinary:
		return EncodeVarlen(sink, dir, ft.Nullable, v.Null, v.Bytes, ft.Length)
	case KindBlobRef, KindClobRef:
		return encodeLOBRef(sink, dir, ft.Nullable, v)
	default:
		return false, ErrOutOfRange(ft.Kind, nil)
	}
}

// DecodeValue dispatches to the Kind-specific decoder, allocating varlen
// content by copying into arena (the record/record-store's varlen slab).
func DecodeValue(src Source, ft FieldType, dir Direction, arena Arena) (Value, bool) {
	switch ft.Kind {
	case KindInt8:
		i, n, ok := DecodeInt8(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, I64: int64(i)}, ok
	case KindInt16:
		i, n, ok := DecodeInt16(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, I64: int64(i)}, ok
	case KindInt32:
		i, n, ok := DecodeInt32(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, I64: int64(i)}, ok
	case KindInt64:
		i, n, ok := DecodeInt64(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, I64: i}, ok
	case KindBool:
		b, n, ok := DecodeBool(src, dir, ft.Nullable)
		i := int64(0)
		if b {
			i = 1
		}
		return Value{Kind: ft.Kind, Null: n, I64: i}, ok
	case KindFloat32:
		f, n, ok := DecodeFloat32(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, F64: float64(f)}, ok
	case KindFloat64:
		f, n, ok := DecodeFloat64(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, F64: f}, ok
	case KindDecimal:
		d, n, ok := DecodeDecimal(src, dir, ft.Nullable, ft.Decimal)
		return Value{Kind: ft.Kind, Null: n, Dec: d}, ok
	case KindDate:
		d, n, ok := DecodeDate(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, I64: d.DaysSinceEpoch}, ok
	case KindTimeOfDay:
		t, n, ok := DecodeTimeOfDay(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, TOD: t}, ok
	case KindTimeOfDayWithOffset:
		t, n, ok := DecodeTimeOfDayWithOffset(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, TOD: t.TimeOfDay, Off: t.OffsetMinutes}, ok
	case KindTimePoint:
		t, n, ok := DecodeTimePoint(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, TP: t}, ok
	case KindTimePointWithOffset:
		t, n, ok := DecodeTimePointWithOffset(src, dir, ft.Nullable)
		return Value{Kind: ft.Kind, Null: n, TP: t.TimePoint, Off: t.OffsetMinutes}, ok
	case KindChar:
		return decodeFixedChar(src, ft, dir, arena)
	case KindVarchar, KindVarbinary:
		b, n, ok := DecodeVarlen(src, dir, ft.Nullable)
		if ok && !n && arena != nil {
			b = arena.Alloc(b)
		}
		return Value{Kind: ft.Kind, Null: n, Bytes: b}, ok
	case KindBlobRef, KindClobRef:
		return decodeLOBRef(src, ft, dir)
	default:
		return Value{}, false
	}
}

// Arena allocates a durable copy of transient decoded bytes. Implemented
// by pkg/record's varlen arena.
type Arena interface {
	Alloc(p []byte) []byte
}

func encodeFixedChar(sink Sink, ft FieldType, dir Direction, v Value) (bool, error) {
	if !v.Null && len(v.Bytes) > ft.Length {
		return false, ErrTooLong(KindChar, len(v.Bytes), ft.Length)
	}
	tmp := make([]byte, 0, ft.Length+1)
	if ft.Nullable {
		tmp = encodeNullMarker(tmp, v.Null)
	}
	if !v.Null {
		padded := make([]byte, ft.Length)
		copy(padded, v.Bytes)
		for i := len(v.Bytes); i < ft.Length; i++ {
			padded[i] = ' '
		}
		tmp = append(tmp, padded...)
	}
	return finish(sink, dir, tmp), nil
}

func decodeFixedChar(src Source, ft FieldType, dir Direction, arena Arena) (Value, bool) {
	n := ft.Length
	if ft.Nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return Value{}, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if ft.Nullable {
		if buf[0] == markerNull {
			return Value{Kind: ft.Kind, Null: true}, true
		}
		i++
	}
	b := buf[i:]
	if arena != nil {
		b = arena.Alloc(b)
	}
	return Value{Kind: ft.Kind, Bytes: b}, true
}

// LOB references are not order-preserving key material in practice, but
// are still encoded with the sign-bit-flip/complement machinery so they
// compose uniformly with every other field inside a value buffer.
func encodeLOBRef(sink Sink, dir Direction, nullable bool, v Value) (bool, error) {
	tmp := make([]byte, 0, 17)
	if nullable {
		tmp = encodeNullMarker(tmp, v.Null)
	}
	if !v.Null {
		b := make([]byte, 16)
		id := uint64(v.I64)
		putU64(b[:8], id)
		putU64(b[8:], uint64(len(v.Bytes)))
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

func decodeLOBRef(src Source, ft FieldType, dir Direction) (Value, bool) {
	n := 16
	if ft.Nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return Value{}, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if ft.Nullable {
		if buf[0] == markerNull {
			return Value{Kind: ft.Kind, Null: true}, true
		}
		i++
	}
	id := getU64(buf[i : i+8])
	size := getU64(buf[i+8 : i+16])
	return Value{Kind: ft.Kind, I64: int64(id), Bytes: make([]byte, size)}, true
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
