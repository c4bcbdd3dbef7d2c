package exec

import (
	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// resultsState is the Fresh -> Iterating -> Exhausted machine described in
// spec section 4.7: fetchAll/fetch/the aggregate helpers re-enter
// Iterating from Exhausted by rebuilding the pipeline from scratch.
type resultsState int

const (
	stateFresh resultsState = iota
	stateIterating
	stateExhausted
)

// Results is the handle returned by Engine.Run. It owns the pipeline's
// materializing buffers and exposes spec section 4.7's query operations.
// Count and the Sum/Avg/Min/Max helpers cache their answers so repeated
// calls don't re-drain the pipeline; FetchAll and Fetch do not cache.
type Results struct {
	engine *Engine
	query  *query.Query

	state resultsState
	pipe  stage

	countCached bool
	countVal    int64

	aggCached map[string]row.Value
}

func newResults(e *Engine, q *query.Query) *Results {
	return &Results{
		engine:    e,
		query:     q,
		state:     stateFresh,
		aggCached: map[string]row.Value{},
	}
}

// ensure builds or rebuilds the pipeline when entering Iterating from
// Fresh or Exhausted.
func (r *Results) ensure() error {
	if r.state == stateIterating {
		return nil
	}
	s, err := r.engine.buildPipeline(r.query)
	if err != nil {
		return err
	}
	r.pipe = s
	r.state = stateIterating
	return nil
}

func (r *Results) next() (row.Value, bool, error) {
	if err := r.ensure(); err != nil {
		return nil, false, err
	}
	v, ok, err := r.pipe.Next()
	if err != nil || !ok {
		r.state = stateExhausted
		return nil, false, err
	}
	return v, true, nil
}

// FetchAll drains the pipeline and returns every remaining row. Called
// again after exhaustion, it re-runs the pipeline from the top.
func (r *Results) FetchAll() ([]row.Value, error) {
	var out []row.Value
	for {
		v, ok, err := r.next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Fetch returns the first remaining row, or nil if the pipeline is
// exhausted.
func (r *Results) Fetch() (row.Value, error) {
	v, ok, err := r.next()
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// FetchSingle returns the named field of the first remaining row, raising
// MissingField if that field wasn't projected (spec section 4.7).
func (r *Results) FetchSingle(field string) (row.Value, error) {
	v, err := r.Fetch()
	if err != nil {
		return nil, err
	}
	return row.Get(v, field, true)
}

// Count returns the number of remaining rows, draining and caching the
// full count on first call.
func (r *Results) Count() (int64, error) {
	if r.countCached {
		return r.countVal, nil
	}
	all, err := r.FetchAll()
	if err != nil {
		return 0, err
	}
	r.countVal = int64(len(all))
	r.countCached = true
	return r.countVal, nil
}

// Close releases whatever resources the pipeline is still holding —
// an adapter's open file handle, most concretely — without draining the
// remaining rows. Callers that stop early (a LIMIT query that only ever
// calls Fetch once, or code that abandons a Results mid-iteration) should
// defer Close to satisfy spec section 5's "guaranteed release on all exit
// paths" requirement; FetchAll/Count/the aggregate helpers that drain to
// exhaustion already release everything via scanStage's own Close calls,
// so calling Close afterward is harmless but redundant. Close on a Results
// that never built a pipeline (Fresh state) is a no-op. A Results is safe
// to keep using after Close: the next call re-enters ensure() and builds
// a fresh pipeline, just as it would after natural exhaustion.
func (r *Results) Close() error {
	if r.pipe == nil {
		return nil
	}
	err := r.pipe.Close()
	r.state = stateExhausted
	return err
}

// Exists reports whether Count() > 0.
func (r *Results) Exists() (bool, error) {
	n, err := r.Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Sum, Avg, Min, and Max walk the full iterator once per field and cache
// the result (spec section 4.7, section 9 "Caches on Results"). Nulls are
// treated as absent, matching the aggregate functions' own null policy
// (spec section 7).
func (r *Results) Sum(field string) (float64, error) {
	v, err := r.aggregate(field, "sum:"+field, func(vals []float64) row.Value { return sumFloats(vals) })
	if err != nil {
		return 0, err
	}
	f, _ := row.ToFloat(v)
	return f, nil
}

func (r *Results) Avg(field string, decimals int) (float64, error) {
	v, err := r.aggregate(field, "avg:"+field, func(vals []float64) row.Value {
		if len(vals) == 0 {
			return 0.0
		}
		return roundTo(sumFloats(vals)/float64(len(vals)), decimals)
	})
	if err != nil {
		return 0, err
	}
	f, _ := row.ToFloat(v)
	return f, nil
}

func (r *Results) Min(field string) (row.Value, error) {
	return r.extremum(field, "min:"+field, func(c int) bool { return c < 0 })
}

func (r *Results) Max(field string) (row.Value, error) {
	return r.extremum(field, "max:"+field, func(c int) bool { return c > 0 })
}

func (r *Results) extremum(field, cacheKey string, better func(cmp int) bool) (row.Value, error) {
	if v, ok := r.aggCached[cacheKey]; ok {
		return v, nil
	}
	rows, err := r.FetchAll()
	if err != nil {
		return nil, err
	}
	var best row.Value
	haveBest := false
	for _, rv := range rows {
		v, err := row.Get(rv, field, false)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if !haveBest {
			best = v
			haveBest = true
			continue
		}
		c, ok := row.Compare(v, best)
		if ok && better(c) {
			best = v
		}
	}
	r.aggCached[cacheKey] = best
	return best, nil
}

func (r *Results) aggregate(field, cacheKey string, reduce func([]float64) row.Value) (row.Value, error) {
	if v, ok := r.aggCached[cacheKey]; ok {
		return v, nil
	}
	rows, err := r.FetchAll()
	if err != nil {
		return nil, err
	}
	var vals []float64
	for _, rv := range rows {
		v, err := row.Get(rv, field, false)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		f, ok := row.ToFloat(v)
		if !ok {
			return nil, exerrors.TypeError.New("field " + field + " is not numeric")
		}
		vals = append(vals, f)
	}
	result := reduce(vals)
	r.aggCached[cacheKey] = result
	return result, nil
}

func sumFloats(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

// Explain renders which pipeline stages will run for the query and which
// of them force materialization, a debugging aid supplementing spec
// section 4.7 (not itself part of the spec's Results contract).
func (r *Results) Explain() []string {
	var steps []string
	steps = append(steps, "scan "+r.query.FromPath)
	for _, j := range r.query.Joins {
		kind := "inner"
		if j.Kind == query.Left {
			kind = "left"
		}
		steps = append(steps, kind+" join (materializes right side)")
	}
	if r.query.IsGrouped() {
		steps = append(steps, "group by (materializes matching rows)")
	} else {
		steps = append(steps, "filter + project")
		if r.query.IsDistinct {
			steps = append(steps, "distinct (streaming hash set)")
		}
	}
	if len(r.query.OrderByFields) > 0 {
		steps = append(steps, "sort (materializes remaining rows)")
	}
	if r.query.Limit >= 0 || r.query.Offset > 0 {
		steps = append(steps, "limit/offset")
	}
	return steps
}
