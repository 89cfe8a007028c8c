package codec

// Grouped, self-delimiting, order-preserving encoding for variable-length
// byte strings. Payload is split into fixed-size groups; each group is
// padded to full size with 0x00 and followed by a one-byte marker
// recording how many of the group's bytes were real payload. A group
// shorter than groupSize terminates the value (lower marker byte sorts
// before the continuation marker, so truncation never confuses ordering
// or self-delimiting decode), matching the classic memcomparable-bytes
// scheme used across order-preserving KV encodings.
const (
	groupSize    = 8
	groupMarker  = byte(0xFF)
)

// EncodeVarlen encodes a nullable variable-length text/octet value.
func EncodeVarlen(sink Sink, dir Direction, nullable bool, isNull bool, value []byte, limit int) (bool, error) {
	if !isNull && limit > 0 && len(value) > limit {
		return false, ErrTooLong(KindVarchar, len(value), limit)
	}
	groups := len(value)/groupSize + 1
	tmp := make([]byte, 0, 1+groups*(groupSize+1))
	if nullable {
		tmp = encodeNullMarker(tmp, isNull)
	}
	if !isNull {
		pos := 0
		for {
			remaining := len(value) - pos
			n := remaining
			if n > groupSize {
				n = groupSize
			}
			group := make([]byte, groupSize)
			copy(group, value[pos:pos+n])
			tmp = append(tmp, group...)
			if n == groupSize {
				tmp = append(tmp, groupMarker)
			} else {
				tmp = append(tmp, groupMarker-byte(groupSize-n))
				break
			}
			pos += n
			if pos == len(value) {
				// exact multiple of groupSize: one more all-pad terminator group
				tmp = append(tmp, make([]byte, groupSize)...)
				tmp = append(tmp, groupMarker-byte(groupSize))
				break
			}
		}
	}
	return finish(sink, dir, tmp), nil
}

// DecodeVarlen is the inverse of EncodeVarlen.
func DecodeVarlen(src Source, dir Direction, nullable bool) (value []byte, isNull bool, ok bool) {
	if nullable {
		marker, got := src.Next(1)
		if !got {
			return nil, false, false
		}
		m := marker[0]
		if dir == Desc {
			m = ^m
		}
		if m == markerNull {
			return nil, true, true
		}
	}

	var out []byte
	for {
		chunk, got := src.Next(groupSize + 1)
		if !got {
			return nil, false, false
		}
		buf := append([]byte(nil), chunk...)
		if dir == Desc {
			complementDescending(buf)
		}
		group := buf[:groupSize]
		marker := buf[groupSize]
		if marker == groupMarker {
			out = append(out, group...)
			continue
		}
		n := int(marker) - int(groupMarker) + groupSize
		if n < 0 || n > groupSize {
			return nil, false, false
		}
		out = append(out, group[:n]...)
		break
	}
	return out, false, true
}
