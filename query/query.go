// Package query holds the logical query model (spec section 3 "Query
// object") and its fluent builder (spec section 4.4), grounded on the
// pack's omniql repository's engine/models.Query — a single mutable struct
// that accumulates selections, filters, joins, grouping, ordering, and
// pagination before being handed to the execution engine.
package query

import (
	"github.com/docql/docql/adapter"
	"github.com/docql/docql/condition"
	"github.com/docql/docql/function"
)

// SortMode is one ORDER BY entry's direction (spec section 2.1).
type SortMode int

const (
	Asc SortMode = iota
	Desc
	NatSort
	Shuffle
)

// JoinKind is INNER or LEFT (spec section 2.1; RIGHT/FULL/CROSS are out
// of scope for this spec).
type JoinKind int

const (
	Inner JoinKind = iota
	Left
)

// SelectedField is one projection entry (spec section 3). It is keyed by
// FinalName (the alias if present, otherwise OriginField or the rendered
// function call) — finalName must be unique within a query.
type SelectedField struct {
	FinalName   string
	OriginField string
	IsAlias     bool
	Function    *function.Call
}

// JoinSource is the right-hand side of a Join: either a nested *Query or
// a plain adapter.Source scanned at Selector (spec section 3 "Join spec":
// "right: Query|DataSource").
type JoinSource struct {
	SubQuery *Query
	Data     adapter.Source
	Selector string
	// FileRef is set instead of Data when the join's right side was
	// parsed from a file-query literal and has not yet been resolved to
	// an adapter.Source by the caller.
	FileRef *FileRef
}

// FileRef is a parsed "(path).selector" file-query literal (spec section
// 6): a filesystem path whose extension names the format, plus the
// dotted selector into it that names the row-producing node.
type FileRef struct {
	Path     string
	Selector string
}

// Join is one JOIN clause (spec section 3).
type Join struct {
	Source   JoinSource
	Alias    string
	LeftKey  string
	RightKey string
	Op       condition.CompareOp
	Kind     JoinKind
}

// Ordering is one ORDER BY entry; later entries in Query.OrderBy are
// secondary sort keys (spec section 3).
type Ordering struct {
	Field string
	Mode  SortMode
}

// Query is the mutable builder described in spec section 3; once handed
// to exec.Engine.Run it is treated as immutable, except that Run
// re-registers AVG/GROUP_CONCAT in Functions when the Engine was built
// with non-default values for them.
type Query struct {
	Selections []*SelectedField
	IsDistinct bool

	FromPath string
	Source   adapter.Source
	// FromFile is set when the query text names its source via a
	// file-query literal, "(path).selector" (spec section 6); the path is
	// informational for the caller, who is responsible for resolving it
	// to an adapter.Source and calling UseSource — the core never opens
	// a file itself (spec section 1).
	FromFile *FileRef

	Where  *condition.Group
	Having *condition.Group

	Joins []*Join

	GroupByFields []string
	OrderByFields []*Ordering

	Limit  int // -1 means unset (no LIMIT)
	Offset int

	Functions *function.Registry

	// bookkeeping for builder invariants (spec section 4.4)
	err             error
	finalNames      map[string]bool
	lastSelectedIdx int  // index into Selections of the most recently added field; -1 until the first selection
	lastJoin        *Join
	groupStack      []*condition.Group // top of stack is where the next where/and/or/xor/whereGroup lands
	havingStack     []*condition.Group
	inHaving        bool
}

// New returns an empty query ready for building, with the default
// function registry (spec section 9 "Function dispatch").
func New() *Query {
	root := condition.NewGroup()
	havingRoot := condition.NewGroup()
	return &Query{
		Limit:           -1,
		Where:           root,
		Having:          havingRoot,
		Functions:       function.NewRegistry(),
		finalNames:      map[string]bool{},
		lastSelectedIdx: -1,
		groupStack:      []*condition.Group{root},
		havingStack:     []*condition.Group{havingRoot},
	}
}

// HasAggregate reports whether any selection uses an aggregate function —
// this decides whether the executor takes the grouped-aggregation path
// even without an explicit GROUP BY (spec section 4.6).
func (q *Query) HasAggregate() bool {
	for _, f := range q.Selections {
		if f.Function != nil {
			if def, ok := q.Functions.Lookup(f.Function.Name); ok && def.Kind == function.KindAggregate {
				return true
			}
		}
	}
	return false
}

// IsGrouped reports whether the executor must take the grouped path:
// either an explicit GROUP BY, or any aggregate in the selections.
func (q *Query) IsGrouped() bool {
	return len(q.GroupByFields) > 0 || q.HasAggregate()
}
