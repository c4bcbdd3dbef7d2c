package exec

import (
	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/function"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// projectRow builds one output row from base by walking q.Selections in
// declaration order (spec section 8 invariant 2: "project(row) depends
// only on row and previously computed fields in declaration order").
// group is nil outside a GROUP BY/aggregate context; when non-nil it is
// the full bucket an aggregate SelectedField reduces over, and base is
// conventionally its first row (spec section 4.6 step 3).
func projectRow(q *query.Query, base row.Value, group []row.Value) (*row.Map, error) {
	out := row.NewMap()
	for _, f := range q.Selections {
		if f.Function == nil && f.OriginField == "*" {
			if m, ok := base.(*row.Map); ok {
				for _, k := range m.Keys() {
					v, _ := m.Get(k)
					out.Set(k, v)
				}
			}
			continue
		}

		var v row.Value
		var err error
		switch {
		case f.Function != nil:
			v, err = evalFunction(q, f.Function, base, out, group)
		default:
			v, err = row.Get(base, f.OriginField, false)
		}
		if err != nil {
			return nil, err
		}
		out.Set(f.FinalName, v)
	}
	return out, nil
}

func evalFunction(q *query.Query, call *function.Call, base row.Value, partial *row.Map, group []row.Value) (row.Value, error) {
	def, ok := q.Functions.Lookup(call.Name)
	if !ok {
		return nil, exerrors.UnexpectedValue.New("unknown function " + call.Name)
	}
	switch def.Kind {
	case function.KindAggregate:
		if group == nil {
			return nil, exerrors.UnexpectedValue.New(call.Name + " used without a GROUP BY/aggregate context")
		}
		return def.Agg(group, call.Args)
	case function.KindConst:
		return def.Const(call.Args)
	default:
		ctx := &function.RowContext{Row: base, Partial: partial}
		return def.Row(ctx, call.Args)
	}
}
