package exec

import (
	"github.com/docql/docql/adapter"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// scanStage adapts an adapter.RowIter to the pipeline's stage interface,
// and guarantees Close is called exactly once regardless of how the
// pipeline stops consuming it (spec section 5 "scoped acquisition with
// guaranteed release on all exit paths").
type scanStage struct {
	iter   adapter.RowIter
	closed bool
}

func (e *Engine) scan(q *query.Query) (stage, error) {
	iter, err := q.Source.StreamRows(q.FromPath)
	if err != nil {
		return nil, err
	}
	return &scanStage{iter: iter}, nil
}

func (s *scanStage) Next() (row.Value, bool, error) {
	v, ok, err := s.iter.Next()
	if err != nil {
		_ = s.Close()
		return nil, false, err
	}
	if !ok {
		_ = s.Close()
		return nil, false, nil
	}
	return v, true, nil
}

// Close releases the underlying adapter.RowIter exactly once, whether
// called internally on exhaustion/error or externally by a caller that
// stopped pulling early (Results.Close).
func (s *scanStage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.iter.Close()
}

// drainAll pulls every remaining row out of s, used by stages that must
// materialize their input in full (join build side, group-by, sort).
func drainAll(s stage) ([]row.Value, error) {
	var out []row.Value
	for {
		v, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// sliceStage replays an already-materialized slice as a stage.
type sliceStage struct {
	rows []row.Value
	pos  int
}

func (s *sliceStage) Next() (row.Value, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	v := s.rows[s.pos]
	s.pos++
	return v, true, nil
}

// Close is a no-op: a sliceStage only replays rows already materialized
// in memory, holding nothing that needs releasing.
func (s *sliceStage) Close() error {
	return nil
}
