package function

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/row"
)

func registerHashes(r *Registry) {
	r.Register(&Def{Name: "MD5", Kind: KindRow, Row: hashFn(func(b []byte) []byte { s := md5.Sum(b); return s[:] })})
	r.Register(&Def{Name: "SHA1", Kind: KindRow, Row: hashFn(func(b []byte) []byte { s := sha1.Sum(b); return s[:] })})
	r.Register(&Def{Name: "RANDOM_BYTES", Kind: KindConst, Const: randomBytesFn})
}

func hashFn(sum func([]byte) []byte) RowFunc {
	return func(ctx *RowContext, args []Arg) (row.Value, error) {
		if len(args) != 1 {
			return nil, exerrors.UnexpectedValue.New("hash function requires exactly one argument")
		}
		v, err := ctx.Resolve(args[0])
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(sum([]byte(row.ToString(v)))), nil
	}
}

// randomBytesFn returns n random bytes, hex-encoded, from a host
// cryptographic RNG (spec section 5).
func randomBytesFn(args []Arg) (row.Value, error) {
	n := 16
	if len(args) > 0 {
		if v, ok := row.ToInt(args[0].Literal); ok {
			n = int(v)
		}
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, exerrors.UnexpectedValue.New(err.Error())
	}
	return hex.EncodeToString(buf), nil
}
