package exec

import (
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// limitOffsetStage skips Offset rows then yields at most Limit (spec
// section 4.6 step 5). Because every upstream stage is pull-based, a
// query with no sort/group/join naturally stops pulling from the source
// as soon as Limit is satisfied — the "push limit into the scan" spec
// calls out falls out of the pull architecture rather than needing a
// separate code path.
type limitOffsetStage struct {
	in      stage
	offset  int
	limit   int // -1 means unbounded
	skipped int
	emitted int
}

func limitOffset(q *query.Query, in stage) stage {
	if q.Offset == 0 && q.Limit < 0 {
		return in
	}
	return &limitOffsetStage{in: in, offset: q.Offset, limit: q.Limit}
}

func (s *limitOffsetStage) Next() (row.Value, bool, error) {
	if s.limit >= 0 && s.emitted >= s.limit {
		return nil, false, nil
	}
	for s.skipped < s.offset {
		_, ok, err := s.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		s.skipped++
	}
	v, ok, err := s.in.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	s.emitted++
	return v, true, nil
}

func (s *limitOffsetStage) Close() error {
	return s.in.Close()
}
