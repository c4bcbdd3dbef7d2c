// Package yamladapter is a reference adapter.Source over a YAML document,
// wiring gopkg.in/yaml.v2 the way the pack's dolthub-go-mysql-server
// go.mod does (a direct dependency there). Like jsonadapter, it decodes
// the whole document eagerly; a real streaming YAML/NEON reader is an
// out-of-scope external collaborator (spec section 1).
package yamladapter

import (
	"fmt"
	"io"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/docql/docql/adapter"
	"github.com/docql/docql/row"
)

// Source wraps a fully-decoded YAML document.
type Source struct {
	label string
	root  row.Value
}

// New decodes r as YAML and returns a Source labeled label for query.Test().
func New(label string, r io.Reader) (*Source, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("yamladapter: %w", err)
	}
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yamladapter: %w", err)
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
		return nil, fmt.Errorf("yamladapter: selector %q does not name a row sequence", selector)
	}
}

// convert turns yaml.v2's decoded tree (map[interface{}]interface{},
// []interface{}, and scalars already typed as int/float64/bool/string/nil)
// into the engine's row.Value shape.
func convert(v interface{}) row.Value {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := row.NewMap()
		for k, val := range t {
			m.Set(fmt.Sprintf("%v", k), convert(val))
		}
		return m
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
	case int:
		return int64(t)
	default:
		return t
	}
}
