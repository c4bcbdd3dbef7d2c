package row

import (
	"github.com/cespare/xxhash/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// toBSON converts a row.Value into a shape the bson package's default
// registry can marshal directly: *Map becomes an order-preserving bson.D,
// Seq becomes a bson.A, and scalars pass through unchanged.
func toBSON(v Value) interface{} {
	switch t := v.(type) {
	case *Map:
		d := make(bson.D, 0, t.Len())
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			d = append(d, bson.E{Key: k, Value: toBSON(val)})
		}
		return d
	case Seq:
		a := make(bson.A, 0, len(t))
		for _, e := range t {
			a = append(a, toBSON(e))
		}
		return a
	default:
		return t
	}
}

// CanonicalHash returns a deterministic 64-bit hash of v, used to de-
// duplicate DISTINCT output rows (join and GROUP BY keys use ScalarKey
// instead). It marshals the row through bson (which
// encodes ints/floats/bools/strings unambiguously, unlike a naive string
// join) to get canonical bytes, then hashes those bytes with xxhash —
// the same fast non-cryptographic hash the rest of the ecosystem reaches
// for when two values just need to compare equal or not.
func CanonicalHash(v Value) (uint64, error) {
	b, err := bson.Marshal(toBSON(v))
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(b), nil
}

// ScalarKey renders a scalar value as a string suitable for use as a map
// key (join keys, GROUP BY bucket keys). Unlike ToString it distinguishes
// nil from the empty string so an absent key never collides with one
// whose value actually is "".
func ScalarKey(v Value) string {
	if v == nil {
		return "\x00null"
	}
	return ToString(v)
}
