// Package process bundles the per-task execution state a running
// operator chain needs: block-scope variable tables, per-operator
// context, the main and varlen arenas, and the transaction/strand/seat
// state threaded through a task. Grounded on the teacher's
// pkg/manager.Manager struct, which bundles a node's owned resources
// (store, fsm, event broker, token manager, ...) behind one type with
// constructor-time wiring; generalized here from a long-lived cluster
// node to a short-lived, poolable per-task bundle.
package process

import "github.com/cuemby/relkv/pkg/record"

// VarID is a compile-time variable identity, stable across the plan
// regardless of which block scope or task instance is executing.
type VarID int

// VariableTable maps compile-time variable identities to their location
// in a backing record schema (value offset, nullity offset, field
// index). One table exists per block scope; the record store backing
// it is assigned at runtime by whichever operator owns the scope.
type VariableTable struct {
	meta  *record.Meta
	index map[VarID]int // var id -> field index in meta
}

// NewVariableTable builds a table over meta for the given variable ids,
// assigned to meta's fields in order.
func NewVariableTable(meta *record.Meta, vars []VarID) *VariableTable {
	idx := make(map[VarID]int, len(vars))
	for i, v := range vars {
		idx[v] = i
	}
	return &VariableTable{meta: meta, index: idx}
}

// Meta returns the backing record schema.
func (vt *VariableTable) Meta() *record.Meta { return vt.meta }

// Locate resolves a variable id to its field within the schema.
func (vt *VariableTable) Locate(v VarID) (record.Field, bool) {
	i, ok := vt.index[v]
	if !ok {
		return record.Field{}, false
	}
	return vt.meta.Field(i), true
}

// FieldIndex resolves a variable id to its ordinal field index.
func (vt *VariableTable) FieldIndex(v VarID) (int, bool) {
	i, ok := vt.index[v]
	return i, ok
}

// BlockScope pairs a variable table with the record currently bound to
// it at runtime; an operator chain advances Current as it produces rows.
type BlockScope struct {
	Vars    *VariableTable
	Current *record.Record
}

// GetInt64 reads an int64-kind field for v out of the scope's current
// record, reporting whether v resolved and whether the value is null.
func (s *BlockScope) GetInt64(v VarID) (value int64, null bool, ok bool) {
	i, ok := s.Vars.FieldIndex(v)
	if !ok || s.Current == nil {
		return 0, false, false
	}
	return s.Current.GetInt64(i), s.Current.IsNull(i), true
}

// SetInt64 writes an int64-kind field for v into the scope's current
// record.
func (s *BlockScope) SetInt64(v VarID, value int64) bool {
	i, ok := s.Vars.FieldIndex(v)
	if !ok || s.Current == nil {
		return false
	}
	s.Current.SetInt64(i, value)
	return true
}
