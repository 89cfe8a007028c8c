// Package record implements fixed-layout tuple schemas: field offsets,
// nullity bits, aligned scratch buffers, and an append-only iterable
// record store backed by one or more arena slabs.
package record

import "github.com/cuemby/relkv/pkg/codec"

// fieldAlignment returns the natural alignment, in bytes, of a field kind.
func fieldAlignment(k codec.Kind) int {
	switch k {
	case codec.KindInt8, codec.KindBool:
		return 1
	case codec.KindInt16:
		return 2
	case codec.KindInt32, codec.KindFloat32, codec.KindDate:
		return 4
	case codec.KindInt64, codec.KindFloat64, codec.KindTimeOfDay, codec.KindTimePoint:
		return 8
	case codec.KindDecimal:
		return 8
	default:
		// varlen/ref fields are stored as (offset, length) pairs into an arena
		return 8
	}
}

// fieldSize returns the in-record value area size, in bytes, of a field
// kind. Varlen and LOB-reference kinds are stored as a fixed-size
// reference (offset uint32, length uint32) regardless of content size.
func fieldSize(k codec.Kind, length int) int {
	switch k {
	case codec.KindInt8, codec.KindBool:
		return 1
	case codec.KindInt16:
		return 2
	case codec.KindInt32, codec.KindFloat32, codec.KindDate:
		return 4
	case codec.KindInt64, codec.KindFloat64, codec.KindTimeOfDay, codec.KindTimePoint:
		return 8
	case codec.KindTimeOfDayWithOffset:
		return 10
	case codec.KindTimePointWithOffset:
		return 12
	case codec.KindDecimal:
		return 16 // big.Int pointer-sized placeholder slot; actual bytes held off-record
	case codec.KindChar:
		return length
	case codec.KindVarchar, codec.KindVarbinary, codec.KindBlobRef, codec.KindClobRef:
		return 8 // (uint32 offset, uint32 length) reference into the varlen arena
	default:
		return 8
	}
}

// Field describes one column of a record schema.
type Field struct {
	Name string // optional; NewExternalMeta also collects the names into ExternalMeta.Names
	Type codec.FieldType

	// computed by Meta.compute
	valueOffset  int
	nullityIndex int // bit index into the nullity bitset; -1 if not nullable
}

// ValueOffset returns the byte offset of this field's value area.
func (f Field) ValueOffset() int { return f.valueOffset }

// NullityIndex returns the bit index of this field's nullity bit, or -1
// if the field is not nullable.
func (f Field) NullityIndex() int { return f.nullityIndex }

// Meta is a record schema with precomputed offsets: an ordered field
// list plus the derived record size and alignment. Two records sharing
// a Meta are byte-interchangeable.
type Meta struct {
	fields       []Field
	alignment    int
	nullityStart int // byte offset where the nullity bitset begins
	nullityBytes int
	size         int // total record size, padded to alignment
}

// NewMeta computes offsets for fields in declaration order: greedily
// packed respecting each field's natural alignment, with the nullity
// bitset placed after the value area and the whole record padded to the
// max field alignment.
func NewMeta(fields []Field) *Meta {
	m := &Meta{fields: append([]Field(nil), fields...)}
	m.compute()
	return m
}

func (m *Meta) compute() {
	align := 1
	offset := 0
	nullable := 0
	for i := range m.fields {
		f := &m.fields[i]
		a := fieldAlignment(f.Type.Kind)
		if a > align {
			align = a
		}
		offset = padTo(offset, a)
		f.valueOffset = offset
		offset += fieldSize(f.Type.Kind, f.Type.Length)
		if f.Type.Nullable {
			f.nullityIndex = nullable
			nullable++
		} else {
			f.nullityIndex = -1
		}
	}
	m.alignment = align
	m.nullityStart = offset
	m.nullityBytes = (nullable + 7) / 8
	total := offset + m.nullityBytes
	m.size = padTo(total, align)
}

func padTo(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// Fields returns the schema's fields in declaration order.
func (m *Meta) Fields() []Field { return m.fields }

// Field returns the i'th field.
func (m *Meta) Field(i int) Field { return m.fields[i] }

// Size is the total record size in bytes, including the nullity bitset
// and alignment padding.
func (m *Meta) Size() int { return m.size }

// Alignment is the record's required alignment, the max of its fields'.
func (m *Meta) Alignment() int { return m.alignment }

// NullityOffset returns the byte offset where the nullity bitset begins.
func (m *Meta) NullityOffset() int { return m.nullityStart }

// ExternalMeta wraps a Meta and additionally carries field names for
// presenting results to a user, as a Names slice in field order.
type ExternalMeta struct {
	*Meta
	Names []string
}

// NewExternalMeta builds an ExternalMeta from fields that carry names.
func NewExternalMeta(fields []Field) *ExternalMeta {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return &ExternalMeta{Meta: NewMeta(fields), Names: names}
}
