// Package function is the scalar/aggregate function library used by
// projections and HAVING (spec section 4.3). Functions are dispatched
// through an open Registry of named factories (spec section 9 "Function
// dispatch") rather than a hard-coded switch, the same style the pack's
// omniql repository uses for its OperationGroups/OperatorMap registries —
// the query model (to detect aggregates) and the executor both consult
// the registry instead of special-casing function names; the parser
// accepts any function name without looking it up.
package function

import "github.com/docql/docql/row"

// Kind is the shape of a function (spec section 4.3).
type Kind int

const (
	// KindRow functions take the current row plus the partial projected
	// result built so far, and return a scalar.
	KindRow Kind = iota
	// KindConst functions take no row context at all.
	KindConst
	// KindAggregate functions take a whole group of rows.
	KindAggregate
)

// Arg is one argument to a function call: either a reference to a field
// (a path into the row, or an already-projected alias) or a literal scalar.
type Arg struct {
	IsField bool
	Field   string
	Literal row.Value
}

// FieldArg builds a field-reference argument.
func FieldArg(field string) Arg { return Arg{IsField: true, Field: field} }

// LitArg builds a literal-value argument.
func LitArg(v row.Value) Arg { return Arg{Literal: v} }

// Call is a parsed function invocation: CONCAT(first, " ", last), COUNT(*),
// ROUND(price, 2), and so on.
type Call struct {
	Name string
	Args []Arg
}

// RowContext is what a KindRow function sees: the raw row being
// projected, and the partial result row built from earlier SelectedFields
// in declaration order (spec section 4.3 "may read previously computed
// fields from partialResult by their finalName").
type RowContext struct {
	Row     row.Value
	Partial *row.Map
}

// Resolve returns a's value: the partial result's alias if a.Field names
// one, otherwise a path lookup against the raw row, otherwise (for a
// non-field arg) the literal.
func (c *RowContext) Resolve(a Arg) (row.Value, error) {
	if !a.IsField {
		return a.Literal, nil
	}
	if c.Partial != nil {
		if v, ok := c.Partial.Get(a.Field); ok {
			return v, nil
		}
	}
	return row.Get(c.Row, a.Field, false)
}

// RowFunc implements a KindRow function.
type RowFunc func(ctx *RowContext, args []Arg) (row.Value, error)

// ConstFunc implements a KindConst function.
type ConstFunc func(args []Arg) (row.Value, error)

// AggFunc implements a KindAggregate function: group is every row
// belonging to the current GROUP BY bucket (or every scanned row, when
// there's no GROUP BY but an aggregate is selected — spec section 4.6).
type AggFunc func(group []row.Value, args []Arg) (row.Value, error)

// Def is one registry entry.
type Def struct {
	Name  string
	Kind  Kind
	Row   RowFunc
	Const ConstFunc
	Agg   AggFunc
}

// Registry is an open, mutable table of function definitions, looked up
// case-insensitively by name.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry returns a Registry pre-populated with every builtin
// function spec section 4.3 names.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*Def)}
	registerAggregates(r)
	registerStrings(r)
	registerMath(r)
	registerHashes(r)
	registerUtility(r)
	return r
}

// Register adds or overwrites a definition.
func (r *Registry) Register(def *Def) {
	r.defs[normalizeName(def.Name)] = def
}

// Lookup returns the definition for name, if registered.
func (r *Registry) Lookup(name string) (*Def, bool) {
	d, ok := r.defs[normalizeName(name)]
	return d, ok
}

func normalizeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
