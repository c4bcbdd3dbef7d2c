package exec

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sort"
	"unicode"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// sort materializes the remaining stream and orders it stably by each
// ORDER BY entry in turn, later entries acting as secondary keys (spec
// section 4.6 step 4). SHUFFLE is terminal and exclusive (spec section 9
// open question, resolved in query.Query.OrderBy: the builder itself
// rejects combining SHUFFLE with other keys, so by the time a Query
// reaches here there is at most one ordering when it's SHUFFLE).
func (e *Engine) sort(q *query.Query, in stage) (stage, error) {
	rows, err := drainAll(in)
	if err != nil {
		return nil, err
	}

	if len(q.OrderByFields) == 1 && q.OrderByFields[0].Mode == query.Shuffle {
		shuffled, err := shuffleRows(rows)
		if err != nil {
			return nil, err
		}
		return &sliceStage{rows: shuffled}, nil
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessRows(rows[i], rows[j], q.OrderByFields)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &sliceStage{rows: rows}, nil
}

func lessRows(a, b row.Value, orderings []*query.Ordering) (bool, error) {
	for _, o := range orderings {
		av, err := row.Get(a, o.Field, false)
		if err != nil {
			return false, err
		}
		bv, err := row.Get(b, o.Field, false)
		if err != nil {
			return false, err
		}
		var c int
		switch o.Mode {
		case query.NatSort:
			c = natCompare(row.ToString(av), row.ToString(bv))
		default:
			c, _ = row.Compare(av, bv)
		}
		if c == 0 {
			continue
		}
		if o.Mode == query.Desc {
			return c > 0, nil
		}
		return c < 0, nil
	}
	return false, nil
}

// natCompare compares two strings the way a human would sort "file2"
// before "file10": runs of digits compare numerically, everything else
// compares lexically, as prescribed by ORDER BY ... NATSORT.
func natCompare(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]
		switch {
		case unicode.IsDigit(ca) && unicode.IsDigit(cb):
			starta, startb := i, j
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na, nb := string(ra[starta:i]), string(rb[startb:j])
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case ca != cb:
			if ca < cb {
				return -1
			}
			return 1
		default:
			i++
			j++
		}
	}
	switch {
	case len(ra)-i < len(rb)-j:
		return -1
	case len(ra)-i > len(rb)-j:
		return 1
	default:
		return 0
	}
}

// shuffleRows returns a new slice containing rows in random order, seeded
// from a cryptographic RNG so shuffles in concurrent queries never share
// PRNG state (spec section 5 "Shared state": "Random functions use a
// cryptographic RNG from the host; they must not share seed state
// between queries").
func shuffleRows(rows []row.Value) ([]row.Value, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, exerrors.UnexpectedValue.New(err.Error())
	}
	seed := int64(binary.BigEndian.Uint64(buf[:]))
	r := mathrand.New(mathrand.NewSource(seed))

	out := append([]row.Value(nil), rows...)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
