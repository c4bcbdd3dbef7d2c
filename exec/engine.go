// Package exec composes the execution pipeline over a query's source
// iterator (spec section 4.6): scan, join, per-row/grouped processing,
// sort, and limit/offset, each a pull-based stage that consumes exactly
// as many upstream rows as its caller demands (spec section 9 "lazy
// pipelines" design note). It is grounded on the pack's auth package's
// logrus.Entry-with-WithFields idiom for diagnostics.
package exec

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/function"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// Engine runs queries. Its zero value is not usable; build one with
// NewEngine.
type Engine struct {
	clock clock.Clock
	log   *logrus.Entry

	avgDecimals    *int
	groupConcatSep *string
}

// Option configures an Engine (spec section "Configuration": "functional
// options on exec.Engine (worker clock, logger, ...)").
type Option func(*Engine)

// WithClock overrides the engine's clock, used only to time-stamp the
// structured duration log at the end of a run. Tests inject
// clock.NewMock to get deterministic durations.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger overrides the logrus.Logger diagnostics are written to.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l.WithField("system", "exec") }
}

// WithDefaultAvgDecimals overrides AVG's decimal-place default for calls
// that omit their optional second argument (spec section 4.3 default 2).
func WithDefaultAvgDecimals(n int) Option {
	return func(e *Engine) { e.avgDecimals = &n }
}

// WithDefaultGroupConcatSeparator overrides GROUP_CONCAT's separator
// default for calls that omit their optional second argument (spec
// section 4.3 default ",").
func WithDefaultGroupConcatSeparator(sep string) Option {
	return func(e *Engine) { e.groupConcatSep = &sep }
}

// NewEngine returns an Engine ready to run queries, defaulting to a
// real-time clock and logrus's standard logger. AVG/GROUP_CONCAT keep
// their package defaults unless WithDefaultAvgDecimals/
// WithDefaultGroupConcatSeparator are given.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock: clock.New(),
		log:   logrus.StandardLogger().WithField("system", "exec"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// applyDefaults re-registers AVG/GROUP_CONCAT onto q's function registry
// with this Engine's configured defaults, when it was built with
// WithDefaultAvgDecimals/WithDefaultGroupConcatSeparator. A caller who
// registered custom Defs onto q.Functions without using those options
// keeps them untouched.
func (e *Engine) applyDefaults(q *query.Query) {
	if e.avgDecimals != nil {
		q.Functions.Register(&function.Def{Name: "AVG", Kind: function.KindAggregate, Agg: function.AvgAgg(*e.avgDecimals)})
	}
	if e.groupConcatSep != nil {
		q.Functions.Register(&function.Def{Name: "GROUP_CONCAT", Kind: function.KindAggregate, Agg: function.GroupConcatAgg(*e.groupConcatSep)})
	}
}

// stage is one pull-based pipeline step: Next yields the next row, or
// (nil, false, nil) at end of input. Close releases any resource the
// stage (or anything upstream of it) is still holding — an adapter's
// open file handle, most concretely — and must be safe to call whether
// or not Next ever reached exhaustion (spec section 5: "the core
// requires scoped acquisition with guaranteed release on all exit
// paths: normal completion, early break, error").
type stage interface {
	Next() (row.Value, bool, error)
	Close() error
}

// Run compiles q into a pipeline and returns a fresh Results handle over
// it (spec section 3 "Results"). q must already have a Source attached
// (query.UseSource) and every join's right side resolved to either a
// Source or a nested *Query; an unresolved FileRef is a JoinError.
func (e *Engine) Run(q *query.Query) (*Results, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	if q.Source == nil {
		return nil, exerrors.JoinError.New("query has no source attached; call UseSource before Run")
	}
	e.applyDefaults(q)
	return newResults(e, q), nil
}

func (e *Engine) buildPipeline(q *query.Query) (stage, error) {
	start := e.clock.Now()
	s, err := e.scan(q)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"phase": "scan"}).Debug("scan started")

	for _, j := range q.Joins {
		s, err = e.join(s, j)
		if err != nil {
			return nil, err
		}
	}

	if q.IsGrouped() {
		s, err = e.group(q, s)
	} else {
		s, err = e.filterProjectDistinct(q, s)
	}
	if err != nil {
		return nil, err
	}

	if len(q.OrderByFields) > 0 {
		s, err = e.sort(q, s)
		if err != nil {
			return nil, err
		}
	}

	s = limitOffset(q, s)
	s = &loggingStage{inner: s, log: e.log, clock: e.clock, start: start}
	return s, nil
}

// loggingStage wraps the final stage so the Results handle's drain emits
// one structured entry with row count and wall-clock duration once
// exhausted (spec section "Logging").
type loggingStage struct {
	inner stage
	log   *logrus.Entry
	clock clock.Clock
	start time.Time
	rows  int64
	done  bool
}

func (s *loggingStage) Next() (row.Value, bool, error) {
	v, ok, err := s.inner.Next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if !s.done {
			s.done = true
			s.log.WithFields(logrus.Fields{
				"phase":    "done",
				"rows":     s.rows,
				"duration": s.clock.Now().Sub(s.start),
			}).Debug("query finished")
		}
		return nil, false, nil
	}
	s.rows++
	return v, true, nil
}

func (s *loggingStage) Close() error {
	return s.inner.Close()
}
