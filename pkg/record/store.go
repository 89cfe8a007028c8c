package record

// Ref is a stable reference to one record appended to a RecordStore. It
// remains valid until the store is Reset.
type Ref struct {
	slab  int
	index int
}

// recordRange is a maximal contiguous run of record indices appended
// within a single slab.
type recordRange struct {
	slab       int
	begin, end int // [begin, end) in record-count units
}

// RecordStore is an append-only sequence of fixed-schema records backed
// by one or more paged arena slabs. Slabs are not contiguous with each
// other; iteration walks the list of contiguous ranges observed during
// append, in insertion order, so growth never invalidates previously
// returned Refs.
type RecordStore struct {
	meta         *Meta
	slabRecords  int // capacity of each slab, in records
	slabs        []*AlignedBuffer
	ranges       []recordRange
	recsInCurrent int
}

// NewRecordStore creates a store for meta, allocating slabCapacity
// records per backing slab.
func NewRecordStore(meta *Meta, slabCapacity int) *RecordStore {
	if slabCapacity < 1 {
		slabCapacity = 1
	}
	s := &RecordStore{meta: meta, slabRecords: slabCapacity}
	s.newSlab()
	return s
}

func (s *RecordStore) newSlab() {
	buf := NewAlignedBuffer(s.meta.Alignment(), s.meta.Size()*s.slabRecords)
	s.slabs = append(s.slabs, buf)
	s.recsInCurrent = 0
}

// Append copies rec's bytes into the store and returns a stable Ref. If
// the current slab is full, a new slab is started, and a new range
// begins (the append is never split across slabs).
func (s *RecordStore) Append(rec *Record) Ref {
	if s.recsInCurrent == s.slabRecords {
		s.newSlab()
	}
	slabIdx := len(s.slabs) - 1
	buf := s.slabs[slabIdx]
	buf.Append(rec.Bytes())
	idx := s.recsInCurrent
	s.recsInCurrent++

	if n := len(s.ranges); n > 0 {
		last := &s.ranges[n-1]
		if last.slab == slabIdx && last.end == idx {
			last.end = idx + 1
			return Ref{slab: slabIdx, index: idx}
		}
	}
	s.ranges = append(s.ranges, recordRange{slab: slabIdx, begin: idx, end: idx + 1})
	return Ref{slab: slabIdx, index: idx}
}

// Get materializes a Record view at ref without copying.
func (s *RecordStore) Get(ref Ref) *Record {
	buf := s.slabs[ref.slab]
	size := s.meta.Size()
	off := ref.index * size
	return WrapRecord(s.meta, buf.Bytes()[off:off+size])
}

// Len returns the number of records appended.
func (s *RecordStore) Len() int {
	n := 0
	for _, r := range s.ranges {
		n += r.end - r.begin
	}
	return n
}

// Reset drops all ranges and releases slabs, invalidating every Ref
// previously returned by Append.
func (s *RecordStore) Reset() {
	s.slabs = nil
	s.ranges = nil
	s.newSlab()
}

// Iterator walks a RecordStore's records in insertion order, range by
// range, slab by slab.
type Iterator struct {
	store     *RecordStore
	rangeIdx  int
	pos       int // current record index within the current range
	cur       *Record
}

// NewIterator returns an iterator positioned before the first record.
func NewIterator(s *RecordStore) *Iterator {
	return &Iterator{store: s, rangeIdx: 0, pos: -1}
}

// Next advances to the next record, returning false when exhausted.
func (it *Iterator) Next() bool {
	for it.rangeIdx < len(it.store.ranges) {
		rng := it.store.ranges[it.rangeIdx]
		if it.pos < 0 {
			it.pos = rng.begin
		} else {
			it.pos++
		}
		if it.pos < rng.end {
			it.cur = it.store.Get(Ref{slab: rng.slab, index: it.pos})
			return true
		}
		it.rangeIdx++
		it.pos = -1
	}
	return false
}

// Record returns the record at the iterator's current position. Valid
// only after a call to Next that returned true.
func (it *Iterator) Record() *Record { return it.cur }
