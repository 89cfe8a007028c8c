package codec

import (
	"math"
	"math/big"
)

// Decimal is an arbitrary-precision fixed-point value: unscaled * 10^-scale.
// There is no decimal type in the retrieved corpus's dependency set, so
// this is built on math/big (see DESIGN.md for why no third-party library
// was available to ground this on).
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// bytesForPrecision returns the fixed byte width needed to hold any
// unscaled value with up to `precision` decimal digits, two's-complement,
// sign included. ~3.322 bits per decimal digit (log2(10)), plus one sign
// bit, rounded up to a whole byte and at least 1 byte.
func bytesForPrecision(precision int) int {
	bits := int(math.Ceil(float64(precision)*3.321928094887362)) + 1
	n := (bits + 7) / 8
	if n < 1 {
		n = 1
	}
	return n
}

// EncodeDecimal encodes a nullable decimal field at its declared
// (precision, scale). v.Scale must equal spec.Scale; callers rescale
// before calling this.
func EncodeDecimal(sink Sink, dir Direction, nullable bool, isNull bool, spec DecimalSpec, v Decimal) (bool, error) {
	tmp := make([]byte, 0, bytesForPrecision(spec.Precision)+1)
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		if v.Scale != spec.Scale {
			return false, ErrInvalidDecimal(spec)
		}
		width := bytesForPrecision(spec.Precision)
		b, err := twosComplementFixed(v.Unscaled, width)
		if err != nil {
			return false, ErrInvalidDecimal(spec)
		}
		flipSignBit(b)
		tmp = append(tmp, b...)
	}
	return finish(sink, dir, tmp), nil
}

// DecodeDecimal is the inverse of EncodeDecimal.
func DecodeDecimal(src Source, dir Direction, nullable bool, spec DecimalSpec) (v Decimal, isNull bool, ok bool) {
	width := bytesForPrecision(spec.Precision)
	n := width
	if nullable {
		n++
	}
	raw, got := src.Next(n)
	if !got {
		return Decimal{}, false, false
	}
	buf := append([]byte(nil), raw...)
	if dir == Desc {
		complementDescending(buf)
	}
	i := 0
	if nullable {
		if buf[0] == markerNull {
			return Decimal{}, true, true
		}
		i++
	}
	b := append([]byte(nil), buf[i:]...)
	flipSignBit(b)
	unscaled := fromTwosComplementFixed(b)
	return Decimal{Unscaled: unscaled, Scale: spec.Scale}, false, true
}

// twosComplementFixed renders v as a fixed-width, width-byte, big-endian
// two's-complement byte string. It fails if v does not fit in width bytes.
func twosComplementFixed(v *big.Int, width int) ([]byte, error) {
	max := new(big.Int).Lsh(big.NewInt(1), uint(width*8-1)) // 2^(8w-1)
	min := new(big.Int).Neg(max)
	max.Sub(max, big.NewInt(1)) // 2^(8w-1) - 1
	if v.Cmp(max) > 0 || v.Cmp(min) < 0 {
		return nil, errDecimalOverflow
	}

	out := make([]byte, width)
	if v.Sign() >= 0 {
		v.FillBytes(out)
		return out, nil
	}
	// two's complement: (2^(8w) + v)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	adj := new(big.Int).Add(mod, v)
	adj.FillBytes(out)
	return out, nil
}

func fromTwosComplementFixed(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, mod)
	}
	return v
}

var errDecimalOverflow = ErrInvalidDecimal(DecimalSpec{})
