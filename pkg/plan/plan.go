// Package plan defines the compiled-plan types consumed from the
// planner (spec §6): process step graphs, operator nodes, the
// compiled-expression catalog, block-variable info per process, index
// references for scan/find, and the affected-index list for writes.
// Plan construction itself (parsing, type checking, optimization) is an
// external collaborator's job; this package only holds the compiled
// shape the execution core walks.
package plan

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/process"
)

// OpKind identifies which operator kernel a node invokes.
type OpKind string

const (
	OpScan          OpKind = "scan"
	OpFind          OpKind = "find"
	OpJoinFind      OpKind = "join_find"
	OpJoinScan      OpKind = "join_scan"
	OpFilter        OpKind = "filter"
	OpProject       OpKind = "project"
	OpEmit          OpKind = "emit"
	OpWrite         OpKind = "write"
	OpTakeFlat      OpKind = "take_flat"
	OpTakeGroup     OpKind = "take_group"
	OpTakeCogroup   OpKind = "take_cogroup"
	OpOffer         OpKind = "offer"
	OpAggregate     OpKind = "aggregate"
	OpAggregateGroup OpKind = "aggregate_group"
)

// WriteMode selects the write operator's statement kind.
type WriteMode string

const (
	WriteInsert WriteMode = "insert"
	WriteUpdate WriteMode = "update"
	WriteDelete WriteMode = "delete"
	WriteUpsert WriteMode = "upsert"
)

// JoinMode selects join_find/join_scan semantics.
type JoinMode string

const (
	JoinInner JoinMode = "inner"
	JoinSemi  JoinMode = "semi"
	JoinAnti  JoinMode = "anti"
	JoinOuter JoinMode = "outer"
)

// IndexRef names the target index for a scan, find, or join lookup.
type IndexRef struct {
	StorageName string
	Primary     bool
}

// OperatorNode is one node of a process's operator sub-DAG.
type OperatorNode struct {
	ID       process.OperatorID
	Kind     OpKind
	Children []*OperatorNode

	// scan / find / join_find / join_scan
	Index        *IndexRef
	ParallelScan bool
	RowLimit     int
	JoinMode     JoinMode

	// write
	WriteMode       WriteMode
	AffectedIndexes []IndexRef

	// filter / project
	Expr       ExprID   // filter's boolean expression
	ProjectTo  []process.VarID
	ProjectExprs []ExprID

	// emit / offer
	WriterName    string
	ExchangeIndex int

	// take_flat / take_group / take_cogroup / aggregate / aggregate_group
	SourceExchanges []int
}

// BlockVarInfo describes one compile-time variable within a process.
type BlockVarInfo struct {
	ID   process.VarID
	Name string
	Type codec.FieldType
}

// ProcessStep is one node in the plan's step DAG: a process bundling a
// sub-DAG of operators that share block scopes.
type ProcessStep struct {
	ID         int
	BlockVars  []BlockVarInfo
	Root       *OperatorNode
	Partitions int // exchange/task partition count for this step
}

// Plan is the full compiled plan: the step forest plus the shared
// compiled-expression catalog every filter/project node indexes into.
type Plan struct {
	Steps       []*ProcessStep
	Expressions *ExpressionCatalog
}
