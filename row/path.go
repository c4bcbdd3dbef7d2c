package row

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	exerrors "github.com/docql/docql/errors"
)

// segmentPattern matches one path segment: either a bare identifier or a
// non-negative integer index, optionally followed by "[]" (map-over-
// sequence) and/or "->key" (index-then-key / map-then-key extraction).
// Grammar (spec section 4.1): segment ( '.' segment )*, plus
// "...[]->key" and "...N->key".
var segmentPattern = regexp.MustCompile(`^(?:(\d+)|([A-Za-z_][A-Za-z0-9_]*))(\[\])?(?:->([A-Za-z_][A-Za-z0-9_]*))?$`)

// Get resolves a dotted/indexed path over root. In strict mode, a missing
// map key or out-of-range index raises MissingField, and subscripting a
// non-map/non-sequence value raises TypeError. In non-strict mode both
// situations silently resolve to nil, matching WHERE's non-strict
// evaluation (spec section 7).
func Get(root Value, path string, strict bool) (Value, error) {
	if path == "" || path == "*" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		m := segmentPattern.FindStringSubmatch(seg)
		if m == nil {
			return nil, exerrors.UnexpectedValue.New(fmt.Sprintf("malformed path segment %q in %q", seg, path))
		}
		idxStr, name, bracket, arrow := m[1], m[2], m[3], m[4]

		var base Value
		var missing bool
		var err error
		if idxStr != "" {
			idx, _ := strconv.Atoi(idxStr)
			base, missing, err = indexInto(cur, idx, path, seg, strict)
		} else {
			base, missing, err = keyInto(cur, name, path, seg, strict)
		}
		if err != nil {
			return nil, err
		}
		if missing {
			return nil, nil
		}

		switch {
		case bracket != "" && arrow != "":
			seq, ok := base.(Seq)
			if !ok {
				if strict {
					return nil, exerrors.TypeError.New(fmt.Sprintf("segment %q in path %q is not a sequence", seg, path))
				}
				return nil, nil
			}
			mapped := make(Seq, 0, len(seq))
			for _, elem := range seq {
				v, missing, err := keyInto(elem, arrow, path, seg, strict)
				if err != nil {
					return nil, err
				}
				if missing {
					mapped = append(mapped, nil)
					continue
				}
				mapped = append(mapped, v)
			}
			cur = mapped
		case arrow != "":
			v, missing, err := keyInto(base, arrow, path, seg, strict)
			if err != nil {
				return nil, err
			}
			if missing {
				return nil, nil
			}
			cur = v
		default:
			cur = base
		}
	}
	return cur, nil
}

func keyInto(cur Value, key string, path, seg string, strict bool) (v Value, missing bool, err error) {
	m, ok := cur.(*Map)
	if !ok {
		if strict {
			return nil, false, exerrors.TypeError.New(fmt.Sprintf("segment %q in path %q is not a map", seg, path))
		}
		return nil, true, nil
	}
	val, ok := m.Get(key)
	if !ok {
		if strict {
			return nil, false, exerrors.MissingField.New(seg)
		}
		return nil, true, nil
	}
	return val, false, nil
}

func indexInto(cur Value, idx int, path, seg string, strict bool) (v Value, missing bool, err error) {
	seq, ok := cur.(Seq)
	if !ok {
		if strict {
			return nil, false, exerrors.TypeError.New(fmt.Sprintf("segment %q in path %q is not a sequence", seg, path))
		}
		return nil, true, nil
	}
	if idx < 0 || idx >= len(seq) {
		if strict {
			return nil, false, exerrors.MissingField.New(seg)
		}
		return nil, true, nil
	}
	return seq[idx], false, nil
}
