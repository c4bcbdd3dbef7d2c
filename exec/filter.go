package exec

import (
	"github.com/docql/docql/condition"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// filterProjectStage implements spec section 4.6 step 3's ungrouped
// branch: WHERE on the raw row (non-strict), project, HAVING on the
// projected row (strict), then DISTINCT de-duplication. It is a pure
// streaming stage — O(selection width) memory beyond an optional
// DISTINCT hash set (spec section 8 invariant 3).
type filterProjectStage struct {
	q    *query.Query
	in   stage
	seen map[uint64]bool // non-nil only when q.IsDistinct
}

func (e *Engine) filterProjectDistinct(q *query.Query, in stage) (stage, error) {
	s := &filterProjectStage{q: q, in: in}
	if q.IsDistinct {
		s.seen = make(map[uint64]bool)
	}
	return s, nil
}

func (s *filterProjectStage) Next() (row.Value, bool, error) {
	for {
		raw, ok, err := s.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}

		match, err := condition.Evaluate(s.q.Where, raw, false)
		if err != nil {
			return nil, false, err
		}
		if !match {
			continue
		}

		projected, err := projectRow(s.q, raw, nil)
		if err != nil {
			return nil, false, err
		}

		ok, err = condition.Evaluate(s.q.Having, projected, true)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}

		if s.seen != nil {
			h, err := row.CanonicalHash(projected)
			if err != nil {
				return nil, false, err
			}
			if s.seen[h] {
				continue
			}
			s.seen[h] = true
		}

		return projected, true, nil
	}
}

func (s *filterProjectStage) Close() error {
	return s.in.Close()
}
