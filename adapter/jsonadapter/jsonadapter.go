// Package jsonadapter is a reference adapter.Source over a JSON document,
// good enough to drive the engine's end-to-end tests (spec section 8
// scenarios are all JSON-sourced). It is not the streaming-JSON adapter
// spec section 6 calls "jsonFile" — that variant, and a true pull-parser
// over large documents, remain out-of-scope external collaborators; this
// one decodes the whole document up front with encoding/json.
package jsonadapter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/docql/docql/adapter"
	"github.com/docql/docql/row"
)

// Source wraps a fully-decoded JSON document.
type Source struct {
	label string
	root  row.Value
}

// New decodes r as JSON and returns a Source labeled label for query.Test().
func New(label string, r io.Reader) (*Source, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("jsonadapter: %w", err)
	}
	return &Source{label: label, root: convert(raw)}, nil
}

func (s *Source) SourceLabel() string {
	return s.label
}

func (s *Source) StreamRows(selector string) (adapter.RowIter, error) {
	v, err := row.Get(s.root, selector, true)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case row.Seq:
		return adapter.NewSliceIter(t), nil
	case *row.Map:
		return adapter.NewSliceIter(row.Seq{t}), nil
	default:
		return nil, fmt.Errorf("jsonadapter: selector %q does not name a row sequence", selector)
	}
}

// convert turns the generic interface{} tree produced by encoding/json
// (map[string]interface{}, []interface{}, json.Number, string, bool, nil)
// into the engine's row.Value shape, preserving key order is not possible
// from encoding/json's maps (Go maps are unordered) — JSON object key
// order is lost the same way it is in every encoding/json-based reader.
func convert(v interface{}) row.Value {
	switch t := v.(type) {
	case map[string]interface{}:
		m := row.NewMap()
		for k, val := range t {
			m.Set(k, convert(val))
		}
		return m
	case []interface{}:
		seq := make(row.Seq, len(t))
		for i, val := range t {
			seq[i] = convert(val)
		}
		return seq
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return t
	}
}
