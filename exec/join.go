package exec

import (
	"github.com/docql/docql/condition"
	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// joinStage implements one JOIN clause (spec section 4.6 step 2): the
// right side is fully materialized once into a hash multimap keyed by
// rightKey (or, for non-equality operators, into a plain slice scanned
// linearly), then the left side streams through, emitting the cross
// product of each left row with its matches.
type joinStage struct {
	engine *Engine
	left   stage
	join   *query.Join
	eq     map[string][]row.Value // built lazily, nil until first Next
	all    []row.Value            // right rows in build order, for non-Eq joins and LEFT zero-fill schema
	built  bool

	pending []row.Value // queued matches for the current left row
	pendIdx int
	curLeft row.Value
}

func (e *Engine) join(left stage, j *query.Join) (stage, error) {
	return &joinStage{engine: e, left: left, join: j}, nil
}

func (e *Engine) rightStage(j *query.Join) (stage, error) {
	switch {
	case j.Source.Data != nil:
		iter, err := j.Source.Data.StreamRows(j.Source.Selector)
		if err != nil {
			return nil, err
		}
		return &scanStage{iter: iter}, nil
	case j.Source.SubQuery != nil:
		return e.buildPipeline(j.Source.SubQuery)
	default:
		return nil, exerrors.JoinError.New("join source not resolved to an adapter.Source or sub-query")
	}
}

func (s *joinStage) build(e *Engine) error {
	if s.built {
		return nil
	}
	s.built = true
	rs, err := e.rightStage(s.join)
	if err != nil {
		return err
	}
	rows, err := drainAll(rs)
	if err != nil {
		return err
	}
	s.all = rows
	if s.join.Op == condition.Eq {
		s.eq = make(map[string][]row.Value, len(rows))
		for _, r := range rows {
			key, err := joinKeyOf(r, s.join.RightKey)
			if err != nil {
				return err
			}
			s.eq[key] = append(s.eq[key], r)
		}
	}
	return nil
}

func joinKeyOf(r row.Value, field string) (string, error) {
	v, err := row.Get(r, field, false)
	if err != nil {
		return "", err
	}
	return row.ScalarKey(v), nil
}

func joinMatches(left, right row.Value, op condition.CompareOp) (bool, error) {
	switch op {
	case condition.Eq:
		return row.Equal(left, right), nil
	case condition.Ne:
		return !row.Equal(left, right), nil
	case condition.Lt, condition.Le, condition.Gt, condition.Ge:
		c, ok := row.Compare(left, right)
		if !ok {
			return false, nil
		}
		switch op {
		case condition.Lt:
			return c < 0, nil
		case condition.Le:
			return c <= 0, nil
		case condition.Gt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, exerrors.JoinError.New("unsupported join operator")
	}
}

// zeroFilledRight builds the empty-match placeholder for a LEFT join: a
// map with every key of the right side's first scanned row set to nil
// (spec section 9, resolved per SPEC_FULL.md: inferred from the right
// side's first scanned row, whether or not it matched). It
// returns row.Value rather than *row.Map and returns a bare untyped nil
// when there's no schema to infer, so callers comparing the result
// against nil don't fall into the typed-nil-in-interface trap (a nil
// *row.Map boxed into a row.Value is itself non-nil).
func zeroFilledRight(rows []row.Value) row.Value {
	if len(rows) == 0 {
		return nil
	}
	m, ok := rows[0].(*row.Map)
	if !ok {
		return nil
	}
	out := row.NewMap()
	for _, k := range m.Keys() {
		out.Set(k, nil)
	}
	return out
}

func (s *joinStage) nextLeft() (bool, error) {
	v, ok, err := s.left.Next()
	if err != nil || !ok {
		return false, err
	}
	s.curLeft = v
	leftVal, err := row.Get(v, s.join.LeftKey, false)
	if err != nil {
		return false, err
	}
	if s.join.Op == condition.Eq {
		key := row.ScalarKey(leftVal)
		s.pending = s.eq[key]
	} else {
		var matches []row.Value
		for _, r := range s.all {
			rightVal, err := row.Get(r, s.join.RightKey, false)
			if err != nil {
				return false, err
			}
			ok, err := joinMatches(leftVal, rightVal, s.join.Op)
			if err != nil {
				return false, err
			}
			if ok {
				matches = append(matches, r)
			}
		}
		s.pending = matches
	}
	s.pendIdx = 0
	return true, nil
}

// Next drives the build-once/stream-left protocol.
func (s *joinStage) Next() (row.Value, bool, error) {
	if err := s.build(s.engine); err != nil {
		return nil, false, err
	}
	for {
		if s.pendIdx < len(s.pending) {
			right := s.pending[s.pendIdx]
			s.pendIdx++
			return mergeJoinRow(s.curLeft, right, s.join.Alias), true, nil
		}
		has, err := s.nextLeft()
		if err != nil {
			return nil, false, err
		}
		if !has {
			return nil, false, nil
		}
		if len(s.pending) == 0 {
			if s.join.Kind == query.Left {
				zero := zeroFilledRight(s.all)
				return mergeJoinRow(s.curLeft, zero, s.join.Alias), true, nil
			}
			continue
		}
	}
}

// Close releases the left side's resources. The right side is always
// fully drained by build on the first Next call (it's materialized
// entirely, matches or not), so it has already released itself by
// natural exhaustion before Close could ever be reached; only the left
// side can still be mid-stream when a caller stops early.
func (s *joinStage) Close() error {
	return s.left.Close()
}

func mergeJoinRow(left row.Value, right row.Value, alias string) row.Value {
	var out *row.Map
	if m, ok := left.(*row.Map); ok {
		out = m.Clone()
	} else {
		out = row.NewMap()
	}
	if right != nil {
		out.Set(alias, right)
	}
	return out
}
