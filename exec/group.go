package exec

import (
	"strings"

	"github.com/docql/docql/condition"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// groupStage implements spec section 4.6 step 3's grouped branch: WHERE
// on the raw row, bucket by the GROUP BY key (or a single "*" bucket when
// there's no GROUP BY but an aggregate is selected), then once the source
// is exhausted, project one output row per bucket (its first row as
// base, with aggregate SelectedFields reduced over the whole bucket) and
// apply HAVING. This forces full materialization of the matching rows
// (spec section 8 invariant 3 names join/group/sort as the
// materializing stages).
type groupStage struct {
	q    *query.Query
	in   stage
	done bool
	out  []row.Value
	pos  int
}

func (e *Engine) group(q *query.Query, in stage) (stage, error) {
	return &groupStage{q: q, in: in}, nil
}

func groupKey(q *query.Query, r row.Value) (string, error) {
	if len(q.GroupByFields) == 0 {
		return "*", nil
	}
	parts := make([]string, len(q.GroupByFields))
	for i, f := range q.GroupByFields {
		v, err := row.Get(r, f, false)
		if err != nil {
			return "", err
		}
		parts[i] = row.ScalarKey(v)
	}
	return strings.Join(parts, "|"), nil
}

func (s *groupStage) build() error {
	if s.done {
		return nil
	}
	s.done = true

	buckets := map[string][]row.Value{}
	var order []string
	for {
		raw, ok, err := s.in.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		match, err := condition.Evaluate(s.q.Where, raw, false)
		if err != nil {
			return err
		}
		if !match {
			continue
		}
		key, err := groupKey(s.q, raw)
		if err != nil {
			return err
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], raw)
	}

	for _, key := range order {
		group := buckets[key]
		projected, err := projectRow(s.q, group[0], group)
		if err != nil {
			return err
		}
		ok, err := condition.Evaluate(s.q.Having, projected, true)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		s.out = append(s.out, projected)
	}
	return nil
}

func (s *groupStage) Next() (row.Value, bool, error) {
	if err := s.build(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.out) {
		return nil, false, nil
	}
	v := s.out[s.pos]
	s.pos++
	return v, true, nil
}

// Close releases the input stage. If build already ran, the input was
// already fully drained (and so already closed itself); if it hasn't,
// this is what releases it for a caller that never iterated at all.
func (s *groupStage) Close() error {
	return s.in.Close()
}
