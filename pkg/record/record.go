package record

import "encoding/binary"

// Record is a schema-bound view over a fixed-size byte buffer: a single
// tuple's value area plus its nullity bitset. Field access is O(1) given
// the schema, since offsets were precomputed by Meta.
type Record struct {
	meta *Meta
	buf  []byte // exactly meta.Size() bytes
}

// NewRecord allocates a zeroed record for meta.
func NewRecord(meta *Meta) *Record {
	return &Record{meta: meta, buf: make([]byte, meta.Size())}
}

// WrapRecord views an existing byte slice (length >= meta.Size()) as a
// record without copying.
func WrapRecord(meta *Meta, buf []byte) *Record {
	return &Record{meta: meta, buf: buf[:meta.Size()]}
}

// Meta returns the record's schema.
func (r *Record) Meta() *Meta { return r.meta }

// Bytes returns the record's backing storage.
func (r *Record) Bytes() []byte { return r.buf }

// IsNull reports whether field i currently holds a null value. Always
// false for non-nullable fields.
func (r *Record) IsNull(i int) bool {
	f := r.meta.fields[i]
	if f.nullityIndex < 0 {
		return false
	}
	byteIdx := r.meta.nullityStart + f.nullityIndex/8
	bit := byte(1) << uint(f.nullityIndex%8)
	return r.buf[byteIdx]&bit != 0
}

// SetNull sets or clears field i's nullity bit. A no-op for
// non-nullable fields.
func (r *Record) SetNull(i int, null bool) {
	f := r.meta.fields[i]
	if f.nullityIndex < 0 {
		return
	}
	byteIdx := r.meta.nullityStart + f.nullityIndex/8
	bit := byte(1) << uint(f.nullityIndex%8)
	if null {
		r.buf[byteIdx] |= bit
	} else {
		r.buf[byteIdx] &^= bit
	}
}

// ValueBytes returns the raw value-area bytes for field i.
func (r *Record) ValueBytes(i int) []byte {
	f := r.meta.fields[i]
	size := fieldSize(f.Type.Kind, f.Type.Length)
	return r.buf[f.valueOffset : f.valueOffset+size]
}

// SetInt64 stores v little-endian into field i's value area (used for
// the integer, bool and Date kinds that are stored natively rather than
// via a varlen reference); a value area narrower than 8 bytes keeps the
// low-order bytes.
func (r *Record) SetInt64(i int, v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	copy(r.ValueBytes(i), tmp[:])
}

// GetInt64 reads field i's value area as a little-endian integer of the
// area's width (at most 8 bytes), sign-extended to int64.
func (r *Record) GetInt64(i int) int64 {
	var tmp [8]byte
	n := copy(tmp[:], r.ValueBytes(i))
	shift := uint(64 - 8*n)
	return int64(binary.LittleEndian.Uint64(tmp[:])<<shift) >> shift
}

// SetFloat64Bits stores an 8-byte float bit pattern into field i's value area.
func (r *Record) SetFloat64Bits(i int, bits uint64) {
	binary.LittleEndian.PutUint64(r.ValueBytes(i), bits)
}

// GetFloat64Bits reads field i's value area as an 8-byte float bit pattern.
func (r *Record) GetFloat64Bits(i int) uint64 {
	return binary.LittleEndian.Uint64(r.ValueBytes(i))
}

// varlenRef is the fixed 8-byte in-record representation of a
// variable-length field: an offset and length into a VarlenArena.
type varlenRef struct {
	Offset uint32
	Length uint32
}

func (r *Record) setVarlenRef(i int, ref varlenRef) {
	b := r.ValueBytes(i)
	binary.LittleEndian.PutUint32(b[0:4], ref.Offset)
	binary.LittleEndian.PutUint32(b[4:8], ref.Length)
}

func (r *Record) getVarlenRef(i int) varlenRef {
	b := r.ValueBytes(i)
	return varlenRef{
		Offset: binary.LittleEndian.Uint32(b[0:4]),
		Length: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// SetVarlen writes content into arena and stores the resulting reference
// in field i's value area.
func (r *Record) SetVarlen(i int, arena *VarlenArena, content []byte) {
	off := arena.Append(content)
	r.setVarlenRef(i, varlenRef{Offset: uint32(off), Length: uint32(len(content))})
}

// Varlen reads field i's variable-length content back out of arena.
func (r *Record) Varlen(i int, arena *VarlenArena) []byte {
	ref := r.getVarlenRef(i)
	return arena.Slice(int(ref.Offset), int(ref.Length))
}

// VarlenArena is the append-only byte arena backing a record's
// variable-length field content, implementing codec.Arena so decoders
// can allocate durable storage for transient decoded bytes.
type VarlenArena struct {
	buf *AlignedBuffer
}

// NewVarlenArena allocates an empty varlen arena.
func NewVarlenArena() *VarlenArena {
	return &VarlenArena{buf: NewAlignedBuffer(1, 256)}
}

// Append copies p into the arena and returns its offset.
func (a *VarlenArena) Append(p []byte) int {
	return a.buf.Append(p)
}

// Alloc implements codec.Arena: copies p into the arena and returns the
// durable slice (offset/length are recovered via Slice, not retained by
// callers that only need the bytes).
func (a *VarlenArena) Alloc(p []byte) []byte {
	off := a.buf.Append(p)
	return a.buf.data[off : off+len(p)]
}

// Slice returns the arena bytes at [offset, offset+length).
func (a *VarlenArena) Slice(offset, length int) []byte {
	return a.buf.data[offset : offset+length]
}

// Reset drops all content, invalidating previously returned slices.
func (a *VarlenArena) Reset() {
	a.buf.Resize(0)
}
