package query

import (
	"strings"

	"github.com/docql/docql/adapter"
	"github.com/docql/docql/condition"
	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/function"
)

// Err returns the first builder invariant violation recorded so far (spec
// section 4.4), or nil. Every chained method after the first violation is
// a no-op; exec.Engine.Run and parse.Parse surface Err as their own error.
func (q *Query) Err() error {
	return q.err
}

// ---------------------------------------------------------------------
// SELECT
// ---------------------------------------------------------------------

// Select adds one or more plain field projections from a comma-separated
// list (spec section 4.4 "select(csv)").
func (q *Query) Select(csv string) *Query {
	if q.err != nil {
		return q
	}
	for _, f := range strings.Split(csv, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		q.addSelection(&SelectedField{FinalName: f, OriginField: f})
		if q.err != nil {
			return q
		}
	}
	return q
}

// SelectAll adds the "*" wildcard projection (every key of the raw row).
func (q *Query) SelectAll() *Query {
	if q.err != nil {
		return q
	}
	q.addSelection(&SelectedField{FinalName: "*", OriginField: "*"})
	return q
}

// Func adds a function-call projection, e.g. Func("UPPER", function.FieldArg("name")).
func (q *Query) Func(name string, args ...function.Arg) *Query {
	if q.err != nil {
		return q
	}
	rendered := renderCall(name, args)
	q.addSelection(&SelectedField{FinalName: rendered, Function: &function.Call{Name: name, Args: args}})
	return q
}

// Upper, Lower, Count, Sum, Avg, Min, Max, GroupConcat are convenience
// function-builders over the field named field (spec section 4.4 "any
// function-builder (e.g. upper(field))").
func (q *Query) Upper(field string) *Query  { return q.Func("UPPER", function.FieldArg(field)) }
func (q *Query) Lower(field string) *Query  { return q.Func("LOWER", function.FieldArg(field)) }
func (q *Query) Count(field string) *Query  { return q.Func("COUNT", function.FieldArg(field)) }
func (q *Query) Sum(field string) *Query    { return q.Func("SUM", function.FieldArg(field)) }
func (q *Query) Min(field string) *Query    { return q.Func("MIN", function.FieldArg(field)) }
func (q *Query) Max(field string) *Query    { return q.Func("MAX", function.FieldArg(field)) }
func (q *Query) Avg(field string) *Query    { return q.Func("AVG", function.FieldArg(field)) }
func (q *Query) GroupConcat(field string) *Query {
	return q.Func("GROUP_CONCAT", function.FieldArg(field))
}

// As binds alias to the most recently added selection (spec section 4.4:
// "as after a function or plain select binds an alias to the latest
// selection; duplicates or empty aliases raise AliasError"). Exactly one
// As call is allowed per selection.
func (q *Query) As(alias string) *Query {
	if q.err != nil {
		return q
	}
	if q.lastSelectedIdx < 0 {
		q.fail(exerrors.AliasError.New("as() with no preceding selection"))
		return q
	}
	if alias == "" {
		q.fail(exerrors.AliasError.New("empty alias"))
		return q
	}
	field := q.Selections[q.lastSelectedIdx]
	if field.IsAlias {
		q.fail(exerrors.AliasError.New("field already aliased: " + field.FinalName))
		return q
	}
	if q.finalNames[alias] {
		q.fail(exerrors.AliasError.New("duplicate alias: " + alias))
		return q
	}
	delete(q.finalNames, field.FinalName)
	field.FinalName = alias
	field.IsAlias = true
	q.finalNames[alias] = true
	return q
}

// Distinct marks the projection distinct (spec section 4.4 "distinct()").
func (q *Query) Distinct() *Query {
	if q.err != nil {
		return q
	}
	q.IsDistinct = true
	return q
}

func (q *Query) addSelection(f *SelectedField) {
	if q.finalNames[f.FinalName] {
		q.fail(exerrors.AliasError.New("duplicate field: " + f.FinalName))
		return
	}
	q.finalNames[f.FinalName] = true
	q.Selections = append(q.Selections, f)
	q.lastSelectedIdx = len(q.Selections) - 1
}

func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func renderCall(name string, args []function.Arg) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if a.IsField {
			b.WriteString(a.Field)
		} else {
			b.WriteString(renderLiteral(a.Literal))
		}
	}
	b.WriteByte(')')
	return b.String()
}

// ---------------------------------------------------------------------
// FROM
// ---------------------------------------------------------------------

// From sets the dotted selector path (spec section 4.1) used against
// whatever adapter.Source is eventually attached via UseSource.
func (q *Query) From(path string) *Query {
	if q.err != nil {
		return q
	}
	q.FromPath = path
	return q
}

// UseSource attaches the format adapter the FROM path will be resolved
// against. Out-of-scope adapters are attached here by the caller; the
// core never constructs one itself (spec section 1/6).
func (q *Query) UseSource(src adapter.Source) *Query {
	if q.err != nil {
		return q
	}
	q.Source = src
	return q
}

// FromFileRef sets FROM from a parsed file-query literal (spec section
// 6); the caller still must resolve ref.Path to an adapter.Source and
// call UseSource before exec.Engine.Run.
func (q *Query) FromFileRef(ref *FileRef) *Query {
	if q.err != nil {
		return q
	}
	q.FromFile = ref
	q.FromPath = ref.Selector
	return q
}

// ---------------------------------------------------------------------
// WHERE / HAVING
// ---------------------------------------------------------------------

func (q *Query) currentStack() *[]*condition.Group {
	if q.inHaving {
		return &q.havingStack
	}
	return &q.groupStack
}

func (q *Query) addCondition(link condition.LogicOp, field string, op condition.CompareOp, value interface{}) {
	stack := q.currentStack()
	top := (*stack)[len(*stack)-1]
	top.AddLeaf(link, field, op, value)
}

// Where starts (or continues) the WHERE tree with a leaf predicate
// (spec section 4.4).
func (q *Query) Where(field string, op condition.CompareOp, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	q.inHaving = false
	q.addCondition(condition.AND, field, op, value)
	return q
}

// And appends an AND-linked leaf to whichever tree (WHERE or HAVING) is
// currently active.
func (q *Query) And(field string, op condition.CompareOp, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	q.addCondition(condition.AND, field, op, value)
	return q
}

// Or appends an OR-linked leaf to the active tree.
func (q *Query) Or(field string, op condition.CompareOp, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	q.addCondition(condition.OR, field, op, value)
	return q
}

// Xor appends an XOR-linked leaf to the active tree.
func (q *Query) Xor(field string, op condition.CompareOp, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	q.addCondition(condition.XOR, field, op, value)
	return q
}

// Having starts (or continues) the HAVING tree, evaluated against the
// projected row after aggregation (spec section 4.4/7).
func (q *Query) Having(field string, op condition.CompareOp, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	q.inHaving = true
	q.addCondition(condition.AND, field, op, value)
	return q
}

// WhereGroup opens a nested group under whichever tree is active,
// connected to the previous sibling by link (spec section 9 "condition
// tree with groups inside groups").
func (q *Query) WhereGroup(link condition.LogicOp) *Query {
	if q.err != nil {
		return q
	}
	stack := q.currentStack()
	top := (*stack)[len(*stack)-1]
	child := condition.NewGroup()
	top.AddGroup(link, child)
	*stack = append(*stack, child)
	return q
}

// EndGroup closes the most recently opened WhereGroup.
func (q *Query) EndGroup() *Query {
	if q.err != nil {
		return q
	}
	stack := q.currentStack()
	if len(*stack) <= 1 {
		q.fail(exerrors.UnexpectedValue.New("endGroup() without a matching whereGroup()"))
		return q
	}
	*stack = (*stack)[:len(*stack)-1]
	return q
}

// ---------------------------------------------------------------------
// JOIN
// ---------------------------------------------------------------------

func (q *Query) join(kind JoinKind, src JoinSource, alias string) *Query {
	if q.err != nil {
		return q
	}
	j := &Join{Source: src, Alias: alias, Kind: kind, Op: condition.Eq}
	q.Joins = append(q.Joins, j)
	q.lastJoin = j
	return q
}

// InnerJoin adds an INNER JOIN against src's rows at selector, aliased as
// alias. Call On immediately afterward to supply the join keys.
func (q *Query) InnerJoin(src adapter.Source, selector, alias string) *Query {
	return q.join(Inner, JoinSource{Data: src, Selector: selector}, alias)
}

// LeftJoin adds a LEFT JOIN; see InnerJoin.
func (q *Query) LeftJoin(src adapter.Source, selector, alias string) *Query {
	return q.join(Left, JoinSource{Data: src, Selector: selector}, alias)
}

// InnerJoinQuery joins against the result of a nested *Query rather than
// a plain source scan (spec section 3 "right: Query|DataSource").
func (q *Query) InnerJoinQuery(sub *Query, alias string) *Query {
	return q.join(Inner, JoinSource{SubQuery: sub}, alias)
}

// LeftJoinQuery is the LEFT-join counterpart of InnerJoinQuery.
func (q *Query) LeftJoinQuery(sub *Query, alias string) *Query {
	return q.join(Left, JoinSource{SubQuery: sub}, alias)
}

// InnerJoinFileRef adds an INNER JOIN against a parsed file-query literal
// (spec section 6); the caller must still resolve ref.Path to an
// adapter.Source and set it on the new Join's Source.Data (the last entry
// of q.Joins) before execution.
func (q *Query) InnerJoinFileRef(ref *FileRef, alias string) *Query {
	return q.join(Inner, JoinSource{FileRef: ref, Selector: ref.Selector}, alias)
}

// LeftJoinFileRef is the LEFT-join counterpart of InnerJoinFileRef.
func (q *Query) LeftJoinFileRef(ref *FileRef, alias string) *Query {
	return q.join(Left, JoinSource{FileRef: ref, Selector: ref.Selector}, alias)
}

// On supplies the join condition for the most recently added join that
// has not had On called for it yet; with no such join it is a JoinError.
// Other builder calls made between the join call and On are not rejected.
func (q *Query) On(leftKey string, op condition.CompareOp, rightKey string) *Query {
	if q.err != nil {
		return q
	}
	if q.lastJoin == nil {
		q.fail(exerrors.JoinError.New("on() without a preceding join call"))
		return q
	}
	q.lastJoin.LeftKey = leftKey
	q.lastJoin.Op = op
	q.lastJoin.RightKey = rightKey
	q.lastJoin = nil
	return q
}

// ---------------------------------------------------------------------
// GROUP BY / ORDER BY / LIMIT / OFFSET
// ---------------------------------------------------------------------

// GroupBy adds a GROUP BY field.
func (q *Query) GroupBy(field string) *Query {
	if q.err != nil {
		return q
	}
	q.GroupByFields = append(q.GroupByFields, field)
	return q
}

// OrderBy adds an ORDER BY entry; field may reference a SelectedField's
// alias (spec section 4.4: "orderBy without prior select/selectAll is
// legal; sort may reference an alias").
func (q *Query) OrderBy(field string, mode SortMode) *Query {
	if q.err != nil {
		return q
	}
	if mode == Shuffle {
		for _, o := range q.OrderByFields {
			if o.Mode != Shuffle {
				q.fail(exerrors.SortError.New("SHUFFLE cannot be combined with other ORDER BY keys"))
				return q
			}
		}
		if len(q.OrderByFields) > 0 {
			q.fail(exerrors.SortError.New("SHUFFLE cannot be combined with other ORDER BY keys"))
			return q
		}
	} else {
		for _, o := range q.OrderByFields {
			if o.Mode == Shuffle {
				q.fail(exerrors.SortError.New("SHUFFLE cannot be combined with other ORDER BY keys"))
				return q
			}
		}
	}
	q.OrderByFields = append(q.OrderByFields, &Ordering{Field: field, Mode: mode})
	return q
}

// LimitN sets the LIMIT (and, optionally, OFFSET) window.
func (q *Query) LimitN(n int, offset ...int) *Query {
	if q.err != nil {
		return q
	}
	q.Limit = n
	if len(offset) > 0 {
		q.Offset = offset[0]
	}
	return q
}

// OffsetN sets OFFSET independently of LIMIT.
func (q *Query) OffsetN(n int) *Query {
	if q.err != nil {
		return q
	}
	q.Offset = n
	return q
}
