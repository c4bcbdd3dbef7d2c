// Package memoryadapter is a reference adapter.Source backed by rows held
// entirely in memory, grounded on the pack's in-memory table harnesses
// (dolthub's enginetest memory harness, the Velocity sqldriver
// TableScanIterator) used to drive engine tests without a real file.
package memoryadapter

import (
	"fmt"

	"github.com/docql/docql/adapter"
	"github.com/docql/docql/row"
)

// Source holds a fixed document keyed by selector path segment names at
// the root, so StreamRows("data.products") finds the Seq stored under
// that dotted path the same way a JSON/YAML adapter would navigate its
// parsed document.
type Source struct {
	label string
	root  row.Value
}

// New wraps an already-built row.Value document (typically a *row.Map)
// as a Source; label is what SourceLabel() reports.
func New(label string, root row.Value) *Source {
	return &Source{label: label, root: root}
}

func (s *Source) SourceLabel() string {
	return s.label
}

func (s *Source) StreamRows(selector string) (adapter.RowIter, error) {
	v, err := row.Get(s.root, selector, true)
	if err != nil {
		return nil, err
	}
	seq, ok := v.(row.Seq)
	if !ok {
		if m, isMap := v.(*row.Map); isMap {
			seq = row.Seq{m}
		} else {
			return nil, fmt.Errorf("memoryadapter: selector %q does not name a row sequence", selector)
		}
	}
	return adapter.NewSliceIter(seq), nil
}
