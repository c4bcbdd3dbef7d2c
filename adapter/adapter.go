// Package adapter defines the narrow contract the execution engine
// consumes from a concrete file format reader (spec section 6). Concrete
// readers for CSV, XML, JSON, YAML, and NEON are out-of-scope external
// collaborators; this package only declares the interface and a row
// iterator, plus the NewSliceIter convenience constructor used by the
// reference adapters.
package adapter

import "github.com/docql/docql/row"

// RowIter is a lazy, single-pass sequence of rows, pulled one at a time.
// Next returns (nil, false, nil) at end of input. Implementations that
// hold an OS resource (a file handle) must release it from Close,
// regardless of whether the iterator was drained, broken out of early,
// or abandoned after an error (spec section 5).
type RowIter interface {
	Next() (row.Value, bool, error)
	Close() error
}

// Source is the capability the engine requires of a format adapter:
// given an optional dotted selector into the document, produce a lazy
// sequence of rows. An empty selector (or "*") means "the whole document
// is the row sequence" — adapter-defined.
type Source interface {
	// StreamRows opens a RowIter over the rows named by selector.
	StreamRows(selector string) (RowIter, error)

	// SourceLabel is a short human-readable tag used by query.Test(),
	// e.g. "[csv](file.csv)".
	SourceLabel() string
}

// sliceIter adapts an in-memory []row.Value to RowIter; reference
// adapters that materialize eagerly (JSON, YAML) build their stream on
// top of it instead of each hand-rolling Next/Close.
type sliceIter struct {
	rows []row.Value
	pos  int
}

// NewSliceIter returns a RowIter over an already-materialized slice of rows.
func NewSliceIter(rows []row.Value) RowIter {
	return &sliceIter{rows: rows}
}

func (s *sliceIter) Next() (row.Value, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	v := s.rows[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceIter) Close() error {
	s.pos = len(s.rows)
	return nil
}
