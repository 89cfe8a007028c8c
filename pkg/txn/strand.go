package txn

import "sync"

// Strand is an auxiliary sub-transaction attached to a task context to
// serialize worker-local reads/writes within a parallel step. It has its
// own lifetime and is reset on task completion.
//
// Per the resolved Open Question in DESIGN.md, strands created for a
// parallel scan are read-only: ValidateWrite rejects any write attempt
// from such a strand.
type Strand struct {
	mu       sync.Mutex
	owner    *Transaction
	id       string
	readOnly bool
	done     bool
}

// NewStrand attaches a new strand with the given id to tx and registers
// it for later lookup/reset.
func (t *Transaction) NewStrand(id string, readOnly bool) *Strand {
	s := &Strand{owner: t, id: id, readOnly: readOnly}
	t.mu.Lock()
	t.strands[id] = s
	t.mu.Unlock()
	return s
}

// Strand looks up a previously created strand by id.
func (t *Transaction) Strand(id string) (*Strand, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.strands[id]
	return s, ok
}

// Reset marks the strand's lifetime over, releasing it for reuse by a
// later task on the same worker.
func (s *Strand) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Done reports whether Reset has been called.
func (s *Strand) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// ValidateWrite rejects a write attempted from a read-only strand (the
// resolved parallel-scan / LTX write-preserve Open Question: see
// DESIGN.md decision 2).
func (s *Strand) ValidateWrite() error {
	if s.readOnly {
		return strandWriteRejected(s.id)
	}
	return nil
}
