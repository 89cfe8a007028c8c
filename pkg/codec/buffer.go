package codec

// Sink receives encoded bytes. Append must not retain p beyond the call.
// It returns false, leaving its own state unchanged, when p does not fit —
// the overflow-retry contract of spec §4.1.
type Sink interface {
	Append(p []byte) bool
}

// Source yields decoded bytes in order. Next returns false, without
// advancing, if fewer than n bytes remain (a stream underrun).
type Source interface {
	Next(n int) ([]byte, bool)
	Remaining() int
}

// SliceSink is the simplest Sink: a fixed-capacity byte slice.
type SliceSink struct {
	buf  []byte
	size int
}

// NewSliceSink wraps buf (capacity fixed at len(buf)) as a Sink.
func NewSliceSink(buf []byte) *SliceSink {
	return &SliceSink{buf: buf}
}

func (s *SliceSink) Append(p []byte) bool {
	if s.size+len(p) > len(s.buf) {
		return false
	}
	copy(s.buf[s.size:], p)
	s.size += len(p)
	return true
}

// Len returns the number of bytes written so far.
func (s *SliceSink) Len() int { return s.size }

// Bytes returns the written prefix.
func (s *SliceSink) Bytes() []byte { return s.buf[:s.size] }

// SliceSource decodes from a fixed byte slice.
type SliceSource struct {
	buf []byte
	pos int
}

// NewSliceSource wraps buf for sequential decode.
func NewSliceSource(buf []byte) *SliceSource {
	return &SliceSource{buf: buf}
}

func (s *SliceSource) Next(n int) ([]byte, bool) {
	if s.pos+n > len(s.buf) {
		return nil, false
	}
	p := s.buf[s.pos : s.pos+n]
	s.pos += n
	return p, true
}

func (s *SliceSource) Remaining() int { return len(s.buf) - s.pos }

// Pos returns the current read offset, useful for resuming a partial scan.
func (s *SliceSource) Pos() int { return s.pos }
