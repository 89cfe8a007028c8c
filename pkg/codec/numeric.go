package codec

import (
	"encoding/binary"
	"math"
)

// flipSignBit maps a two's-complement big-endian integer representation to
// an order-preserving unsigned one: the top bit is inverted so that the
// most negative value sorts first. This is the standard trick behind every
// memcomparable signed-integer encoding in the corpus (erigon-lib's
// fixed-width BigEndian fields rely on the same unsigned-first-byte
// ordering; we extend it to signed values here).
func flipSignBit(b []byte) {
	if len(b) == 0 {
		return
	}
	b[0] ^= 0x80
}

// complementDescending inverts every bit of b, turning an ascending
// encoding into its descending counterpart (and, incidentally, flipping
// nulls-first into nulls-last, since the null marker participates in the
// same complement).
func complementDescending(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}

// nullMarker is 0x00 for "null" and 0x01 for "present" in the ascending
// encoding; for descending fields the whole record (marker included) is
// bit-complemented by the caller, which naturally produces nulls-last.
const (
	markerNull    byte = 0x00
	markerPresent byte = 0x01
)

func encodeNullMarker(tmp []byte, isNull bool) []byte {
	if isNull {
		return append(tmp, markerNull)
	}
	return append(tmp, markerPresent)
}

// finish applies direction and writes tmp to sink.
func finish(sink Sink, dir Direction, tmp []byte) bool {
	if dir == Desc {
		complementDescending(tmp)
	}
	return sink.Append(tmp)
}

// EncodeInt8 encodes a nullable int8 field.
func EncodeInt8(sink Sink, dir Direction, nullable bool, isNull bool, v int8) bool {
	tmp := make([]byte, 0, 2)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := []byte{byte(v)}
		flipSignBit(b)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeInt8 is the inverse of EncodeInt8.
func DecodeInt8(src Source, dir Direction, nullable bool) (v int8, isNull bool, ok bool) {
	n := 1
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	b := append([]byte(nil), buf[i:]...)
	flipSignBit(b)
	return int8(b[0]), false, true
}

// EncodeInt16 encodes a nullable int16 field, big-endian.
func EncodeInt16(sink Sink, dir Direction, nullable bool, isNull bool, v int16) bool {
	tmp := make([]byte, 0, 3)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v))
		flipSignBit(b)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeInt16 is the inverse of EncodeInt16.
func DecodeInt16(src Source, dir Direction, nullable bool) (v int16, isNull bool, ok bool) {
	n := 2
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	b := append([]byte(nil), buf[i:]...)
	flipSignBit(b)
	return int16(binary.BigEndian.Uint16(b)), false, true
}

// EncodeInt32 encodes a nullable int32 field, big-endian.
func EncodeInt32(sink Sink, dir Direction, nullable bool, isNull bool, v int32) bool {
	tmp := make([]byte, 0, 5)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		flipSignBit(b)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeInt32 is the inverse of EncodeInt32.
func DecodeInt32(src Source, dir Direction, nullable bool) (v int32, isNull bool, ok bool) {
	n := 4
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	b := append([]byte(nil), buf[i:]...)
	flipSignBit(b)
	return int32(binary.BigEndian.Uint32(b)), false, true
}

// EncodeInt64 encodes a nullable int64 field, big-endian.
func EncodeInt64(sink Sink, dir Direction, nullable bool, isNull bool, v int64) bool {
	tmp := make([]byte, 0, 9)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v))
		flipSignBit(b)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeInt64 is the inverse of EncodeInt64.
func DecodeInt64(src Source, dir Direction, nullable bool) (v int64, isNull bool, ok bool) {
	n := 8
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	b := append([]byte(nil), buf[i:]...)
	flipSignBit(b)
	return int64(binary.BigEndian.Uint64(b)), false, true
}

// EncodeBool encodes a nullable bool field (false < true ascending).
func EncodeBool(sink Sink, dir Direction, nullable bool, isNull bool, v bool) bool {
	tmp := make([]byte, 0, 2)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		if v {
			tmp = append(tmp, 1)
		} else {
			tmp = append(tmp, 0)
		}
	}
	return finish(sink, dir, tmp)
}

// DecodeBool is the inverse of EncodeBool.
func DecodeBool(src Source, dir Direction, nullable bool) (v bool, isNull bool, ok bool) {
	n := 1
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return false, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return false, true, true
		}
		i++
	}
	return buf[i] != 0, false, true
}

// floatOrderKey maps an IEEE-754 bit pattern to an order-preserving unsigned
// key: for non-negative floats, flip the sign bit; for negative floats,
// flip every bit. This is the textbook transform for memcomparable floats.
func floatOrderKey32(bits uint32) uint32 {
	if bits&0x80000000 != 0 {
		return ^bits
	}
	return bits | 0x80000000
}

func floatOrderKeyInverse32(key uint32) uint32 {
	if key&0x80000000 != 0 {
		return key &^ 0x80000000
	}
	return ^key
}

func floatOrderKey64(bits uint64) uint64 {
	if bits&0x8000000000000000 != 0 {
		return ^bits
	}
	return bits | 0x8000000000000000
}

func floatOrderKeyInverse64(key uint64) uint64 {
	if key&0x8000000000000000 != 0 {
		return key &^ 0x8000000000000000
	}
	return ^key
}

// EncodeFloat32 encodes a nullable float32 (real) field.
func EncodeFloat32(sink Sink, dir Direction, nullable bool, isNull bool, v float32) bool {
	tmp := make([]byte, 0, 5)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		key := floatOrderKey32(math.Float32bits(v))
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, key)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(src Source, dir Direction, nullable bool) (v float32, isNull bool, ok bool) {
	n := 4
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	key := binary.BigEndian.Uint32(buf[i:])
	return math.Float32frombits(floatOrderKeyInverse32(key)), false, true
}

// EncodeFloat64 encodes a nullable float64 (double) field.
func EncodeFloat64(sink Sink, dir Direction, nullable bool, isNull bool, v float64) bool {
	tmp := make([]byte, 0, 9)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		key := floatOrderKey64(math.Float64bits(v))
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, key)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp)
}

// DecodeFloat64 is the inverse of EncodeFloat64.
func DecodeFloat64(src Source, dir Direction, nullable bool) (v float64, isNull bool, ok bool) {
	n := 8
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return 0, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return 0, true, true
		}
		i++
	}
	key := binary.BigEndian.Uint64(buf[i:])
	return math.Float64frombits(floatOrderKeyInverse64(key)), false, true
}
