package record

// AlignedBuffer is a growable byte buffer with a fixed, immutable
// alignment. size tracks the logical length in use; cap(data) may exceed
// it. Resize reallocates and copies when growing past capacity; Shrink
// truncates size without reallocating.
type AlignedBuffer struct {
	data      []byte
	size      int
	alignment int
}

// NewAlignedBuffer allocates a buffer with the given alignment and
// initial capacity (rounded up to a multiple of alignment).
func NewAlignedBuffer(alignment, initialCapacity int) *AlignedBuffer {
	if alignment < 1 {
		alignment = 1
	}
	cap := padTo(initialCapacity, alignment)
	return &AlignedBuffer{data: make([]byte, cap), alignment: alignment}
}

// Alignment returns the buffer's immutable alignment.
func (b *AlignedBuffer) Alignment() int { return b.alignment }

// Size returns the logical length in use. Size <= cap(data) always.
func (b *AlignedBuffer) Size() int { return b.size }

// Capacity returns the current backing allocation length.
func (b *AlignedBuffer) Capacity() int { return len(b.data) }

// Scratch returns the full backing array (length == Capacity, not just
// the used prefix), for callers that write into it directly (e.g. a
// codec.Sink) and then report the written length via Resize.
func (b *AlignedBuffer) Scratch() []byte { return b.data }

// Grow reallocates the backing array to at least n bytes, preserving no
// content (used before a retried encode pass that starts from scratch).
func (b *AlignedBuffer) Grow(n int) {
	if n <= len(b.data) {
		return
	}
	b.data = make([]byte, padTo(n, b.alignment))
}

// Bytes returns the used prefix of the backing array. The returned slice
// is invalidated by any subsequent Resize that grows past the current
// capacity.
func (b *AlignedBuffer) Bytes() []byte { return b.data[:b.size] }

// Resize sets the logical size to n, reallocating (and copying existing
// content) if n exceeds the current capacity. Growing beyond capacity
// invalidates pointers obtained from Bytes before the call.
func (b *AlignedBuffer) Resize(n int) {
	if n > len(b.data) {
		newCap := padTo(n, b.alignment)
		grown := make([]byte, newCap)
		copy(grown, b.data[:b.size])
		b.data = grown
	}
	b.size = n
}

// Shrink truncates size to n without reallocating. n must be <= Size().
func (b *AlignedBuffer) Shrink(n int) {
	if n < 0 {
		n = 0
	}
	if n > b.size {
		n = b.size
	}
	b.size = n
}

// ShrinkToFit reallocates the backing array to exactly fit Size,
// releasing any unused capacity.
func (b *AlignedBuffer) ShrinkToFit() {
	if len(b.data) == b.size {
		return
	}
	fit := make([]byte, b.size)
	copy(fit, b.data[:b.size])
	b.data = fit
}

// Append grows the buffer by len(p) and copies p into the new tail,
// returning the offset at which p was written.
func (b *AlignedBuffer) Append(p []byte) int {
	off := b.size
	b.Resize(b.size + len(p))
	copy(b.data[off:], p)
	return off
}
