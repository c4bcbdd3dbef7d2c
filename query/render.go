package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docql/docql/condition"
	"github.com/docql/docql/row"
)

// Test renders the query as canonical SQL-like text: one clause per line,
// two-space indentation, uppercase keywords (spec section 4.4 "test()",
// section 6 "canonical rendering"). It is meant to be diffable, and the
// parser accepts the subset of it described in spec section 4.5 (spec
// section 8 invariant 1: parse(render(query)) ≡ query for that subset).
func (q *Query) Test() string {
	var lines []string

	sel := "SELECT "
	if q.IsDistinct {
		sel += "DISTINCT "
	}
	sel += renderSelections(q.Selections)
	lines = append(lines, sel)

	from := "FROM "
	if q.FromFile != nil {
		from += fmt.Sprintf("(%s).%s", q.FromFile.Path, q.FromFile.Selector)
	} else {
		from += renderSource(q.FromPath, q.Source)
	}
	lines = append(lines, from)

	for _, j := range q.Joins {
		lines = append(lines, renderJoin(j))
	}
	if tree := nonEmpty(q.Where); tree != nil {
		lines = append(lines, "WHERE "+renderCond(tree))
	}
	if len(q.GroupByFields) > 0 {
		lines = append(lines, "GROUP BY "+strings.Join(q.GroupByFields, ", "))
	}
	if tree := nonEmpty(q.Having); tree != nil {
		lines = append(lines, "HAVING "+renderCond(tree))
	}
	if len(q.OrderByFields) > 0 {
		parts := make([]string, len(q.OrderByFields))
		for i, o := range q.OrderByFields {
			parts[i] = o.Field + " " + sortModeText(o.Mode)
		}
		lines = append(lines, "ORDER BY "+strings.Join(parts, ", "))
	}
	if q.Limit >= 0 {
		limit := "LIMIT " + strconv.Itoa(q.Limit)
		if q.Offset > 0 {
			limit += " OFFSET " + strconv.Itoa(q.Offset)
		}
		lines = append(lines, limit)
	} else if q.Offset > 0 {
		lines = append(lines, "OFFSET "+strconv.Itoa(q.Offset))
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
			b.WriteString("  ")
		}
		b.WriteString(line)
	}
	return b.String()
}

func nonEmpty(g *condition.Group) *condition.Group {
	if g == nil || len(g.Children) == 0 {
		return nil
	}
	return g
}

func renderSelections(fields []*SelectedField) string {
	if len(fields) == 0 {
		return "*"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		var expr string
		if f.Function != nil {
			expr = renderCall(f.Function.Name, f.Function.Args)
		} else {
			expr = f.OriginField
		}
		if f.IsAlias {
			parts[i] = expr + " AS " + f.FinalName
		} else {
			parts[i] = expr
		}
	}
	return strings.Join(parts, ", ")
}

func renderSource(path string, src interface{ SourceLabel() string }) string {
	if src != nil {
		label := src.SourceLabel()
		if path == "" {
			return label
		}
		return fmt.Sprintf("%s.%s", label, path)
	}
	return path
}

func renderJoin(j *Join) string {
	kind := "INNER"
	if j.Kind == Left {
		kind = "LEFT"
	}
	var src string
	switch {
	case j.Source.FileRef != nil:
		src = fmt.Sprintf("(%s).%s", j.Source.FileRef.Path, j.Source.FileRef.Selector)
	case j.Source.Data != nil:
		src = renderSource(j.Source.Selector, j.Source.Data)
	case j.Source.SubQuery != nil:
		src = "(" + j.Source.SubQuery.Test() + ")"
	}
	return fmt.Sprintf("%s JOIN %s AS %s ON %s %s %s", kind, src, j.Alias, j.LeftKey, compareOpText(j.Op), j.RightKey)
}

func renderCond(g *condition.Group) string {
	var b strings.Builder
	for i, child := range g.Children {
		var link condition.LogicOp
		switch t := child.(type) {
		case *condition.Leaf:
			link = t.Link
		case *condition.Group:
			link = t.Link
		}
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(link.String())
			b.WriteByte(' ')
		}
		switch t := child.(type) {
		case *condition.Leaf:
			b.WriteString(renderLeaf(t))
		case *condition.Group:
			b.WriteByte('(')
			b.WriteString(renderCond(t))
			b.WriteByte(')')
		}
	}
	return b.String()
}

func renderLeaf(l *condition.Leaf) string {
	return fmt.Sprintf("%s %s %s", l.Key, compareOpText(l.Op), renderLiteral(l.Value))
}

func renderLiteral(v row.Value) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "\\'") + "'"
	case row.Seq:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = renderLiteral(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return row.ToString(t)
	}
}

func compareOpText(op condition.CompareOp) string {
	switch op {
	case condition.Eq:
		return "="
	case condition.Ne:
		return "!="
	case condition.Lt:
		return "<"
	case condition.Le:
		return "<="
	case condition.Gt:
		return ">"
	case condition.Ge:
		return ">="
	case condition.Like:
		return "LIKE"
	case condition.NotLike:
		return "NOT LIKE"
	case condition.In:
		return "IN"
	case condition.NotIn:
		return "NOT IN"
	case condition.Is:
		return "IS"
	case condition.IsNot:
		return "IS NOT"
	default:
		return "?"
	}
}

func sortModeText(m SortMode) string {
	switch m {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	case NatSort:
		return "NATSORT"
	case Shuffle:
		return "SHUFFLE"
	default:
		return "?"
	}
}
