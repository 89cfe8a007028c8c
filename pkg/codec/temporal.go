package codec

import "encoding/binary"

// Date is a signed day offset from the epoch (1970-01-01).
type Date struct {
	DaysSinceEpoch int64
}

// TimeOfDay is nanoseconds since midnight, in [0, 86_400e9).
type TimeOfDay struct {
	Nanoseconds uint64
}

// TimeOfDayWithOffset adds a minute offset from UTC to TimeOfDay.
type TimeOfDayWithOffset struct {
	TimeOfDay
	OffsetMinutes int16
}

// TimePoint is a UTC instant: seconds since epoch plus sub-second nanos.
type TimePoint struct {
	SecondsSinceEpoch int64
	Nanoseconds       uint32 // in [0, 1e9)
}

// TimePointWithOffset adds a minute offset from UTC to TimePoint.
type TimePointWithOffset struct {
	TimePoint
	OffsetMinutes int16
}

const nanosPerDay = 86_400_000_000_000

// EncodeDate encodes a nullable date field as a signed day offset.
func EncodeDate(sink Sink, dir Direction, nullable bool, isNull bool, v Date) bool {
	return EncodeInt64(sink, dir, nullable, isNull, v.DaysSinceEpoch)
}

// DecodeDate is the inverse of EncodeDate.
func DecodeDate(src Source, dir Direction, nullable bool) (Date, bool, bool) {
	days, isNull, ok := DecodeInt64(src, dir, nullable)
	return Date{DaysSinceEpoch: days}, isNull, ok
}

// EncodeTimeOfDay encodes nanoseconds-since-midnight, which is already
// unsigned and thus order-preserving with a plain big-endian encoding.
func EncodeTimeOfDay(sink Sink, dir Direction, nullable bool, isNull bool, v TimeOfDay) (bool, error) {
	if !isNull && v.Nanoseconds >= nanosPerDay {
		return false, ErrOutOfRange(KindTimeOfDay, v.Nanoseconds)
	}
	tmp := make([]byte, 0, 9)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v.Nanoseconds)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

// DecodeTimeOfDay is the inverse of EncodeTimeOfDay.
func DecodeTimeOfDay(src Source, dir Direction, nullable bool) (v TimeOfDay, isNull bool, ok bool) {
	n := 8
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return TimeOfDay{}, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return TimeOfDay{}, true, true
		}
		i++
	}
	return TimeOfDay{Nanoseconds: binary.BigEndian.Uint64(buf[i:])}, false, true
}

// EncodeTimeOfDayWithOffset appends a 2-byte signed minute offset after the
// time-of-day payload. The offset does not participate in ordering beyond
// the time-of-day value itself (two instants with equal local time but
// different offsets are adjacent in encoded order).
func EncodeTimeOfDayWithOffset(sink Sink, dir Direction, nullable bool, isNull bool, v TimeOfDayWithOffset) (bool, error) {
	if !isNull && v.Nanoseconds >= nanosPerDay {
		return false, ErrOutOfRange(KindTimeOfDayWithOffset, v.Nanoseconds)
	}
	tmp := make([]byte, 0, 11)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 10)
		binary.BigEndian.PutUint64(b[:8], v.Nanoseconds)
		binary.BigEndian.PutUint16(b[8:], uint16(v.OffsetMinutes))
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

// DecodeTimeOfDayWithOffset is the inverse of EncodeTimeOfDayWithOffset.
func DecodeTimeOfDayWithOffset(src Source, dir Direction, nullable bool) (v TimeOfDayWithOffset, isNull bool, ok bool) {
	n := 10
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return TimeOfDayWithOffset{}, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return TimeOfDayWithOffset{}, true, true
		}
		i++
	}
	nanos := binary.BigEndian.Uint64(buf[i : i+8])
	offset := int16(binary.BigEndian.Uint16(buf[i+8:]))
	return TimeOfDayWithOffset{TimeOfDay: TimeOfDay{Nanoseconds: nanos}, OffsetMinutes: offset}, false, true
}

// EncodeTimePoint encodes (seconds, nanos) where seconds is signed
// (order-preserved via the sign-bit flip) and nanos is unsigned.
func EncodeTimePoint(sink Sink, dir Direction, nullable bool, isNull bool, v TimePoint) (bool, error) {
	if !isNull && v.Nanoseconds >= 1_000_000_000 {
		return false, ErrOutOfRange(KindTimePoint, v.Nanoseconds)
	}
	tmp := make([]byte, 0, 13)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 12)
		binary.BigEndian.PutUint64(b[:8], uint64(v.SecondsSinceEpoch))
		flipSignBit(b[:8])
		binary.BigEndian.PutUint32(b[8:], v.Nanoseconds)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

// DecodeTimePoint is the inverse of EncodeTimePoint.
func DecodeTimePoint(src Source, dir Direction, nullable bool) (v TimePoint, isNull bool, ok bool) {
	n := 12
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return TimePoint{}, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return TimePoint{}, true, true
		}
		i++
	}
	secBytes := append([]byte(nil), buf[i:i+8]...)
	flipSignBit(secBytes)
	seconds := int64(binary.BigEndian.Uint64(secBytes))
	nanos := binary.BigEndian.Uint32(buf[i+8 : i+12])
	return TimePoint{SecondsSinceEpoch: seconds, Nanoseconds: nanos}, false, true
}

// EncodeTimePointWithOffset appends a 2-byte signed minute offset after the
// time-point payload, mirroring EncodeTimeOfDayWithOffset.
func EncodeTimePointWithOffset(sink Sink, dir Direction, nullable bool, isNull bool, v TimePointWithOffset) (bool, error) {
	if !isNull && v.Nanoseconds >= 1_000_000_000 {
		return false, ErrOutOfRange(KindTimePointWithOffset, v.Nanoseconds)
	}
	tmp := make([]byte, 0, 15)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 14)
		binary.BigEndian.PutUint64(b[:8], uint64(v.SecondsSinceEpoch))
		flipSignBit(b[:8])
		binary.BigEndian.PutUint32(b[8:12], v.Nanoseconds)
		binary.BigEndian.PutUint16(b[12:], uint16(v.OffsetMinutes))
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

// DecodeTimePointWithOffset is the inverse of EncodeTimePointWithOffset.
func DecodeTimePointWithOffset(src Source, dir Direction, nullable bool) (v TimePointWithOffset, isNull bool, ok bool) {
	n := 14
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return TimePointWithOffset{}, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return TimePointWithOffset{}, true, true
		}
		i++
	}
	secBytes := append([]byte(nil), buf[i:i+8]...)
	flipSignBit(secBytes)
	seconds := int64(binary.BigEndian.Uint64(secBytes))
	nanos := binary.BigEndian.Uint32(buf[i+8 : i+12])
	offset := int16(binary.BigEndian.Uint16(buf[i+12:]))
	return TimePointWithOffset{TimePoint: TimePoint{SecondsSinceEpoch: seconds, Nanoseconds: nanos}, OffsetMinutes: offset}, false, true
}
