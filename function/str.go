package function

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/row"
)

func registerStrings(r *Registry) {
	r.Register(&Def{Name: "CONCAT", Kind: KindRow, Row: concatFn})
	r.Register(&Def{Name: "CONCAT_WS", Kind: KindRow, Row: concatWSFn})
	r.Register(&Def{Name: "EXPLODE", Kind: KindRow, Row: explodeFn})
	r.Register(&Def{Name: "IMPLODE", Kind: KindRow, Row: implodeFn})
	r.Register(&Def{Name: "LOWER", Kind: KindRow, Row: unaryString(strings.ToLower)})
	r.Register(&Def{Name: "UPPER", Kind: KindRow, Row: unaryString(strings.ToUpper)})
	r.Register(&Def{Name: "LENGTH", Kind: KindRow, Row: lengthFn})
	r.Register(&Def{Name: "REVERSE", Kind: KindRow, Row: reverseFn})
	r.Register(&Def{Name: "BASE64_ENCODE", Kind: KindRow, Row: base64EncodeFn})
	r.Register(&Def{Name: "BASE64_DECODE", Kind: KindRow, Row: base64DecodeFn})
	r.Register(&Def{Name: "RANDOM_STRING", Kind: KindConst, Const: randomStringFn})
}

func unaryString(f func(string) string) RowFunc {
	return func(ctx *RowContext, args []Arg) (row.Value, error) {
		if len(args) != 1 {
			return nil, exerrors.UnexpectedValue.New("function requires exactly one argument")
		}
		v, err := ctx.Resolve(args[0])
		if err != nil {
			return nil, err
		}
		return f(row.ToString(v)), nil
	}
}

func concatFn(ctx *RowContext, args []Arg) (row.Value, error) {
	var b strings.Builder
	for _, a := range args {
		v, err := ctx.Resolve(a)
		if err != nil {
			return nil, err
		}
		b.WriteString(row.ToString(v))
	}
	return b.String(), nil
}

func concatWSFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) < 1 {
		return nil, exerrors.UnexpectedValue.New("CONCAT_WS requires a separator")
	}
	sepVal, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	sep := row.ToString(sepVal)
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := ctx.Resolve(a)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		parts = append(parts, row.ToString(v))
	}
	return strings.Join(parts, sep), nil
}

// explodeFn splits a string field into a row.Seq of strings, the
// complement of IMPLODE/GROUP_CONCAT.
func explodeFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) < 1 {
		return nil, exerrors.UnexpectedValue.New("EXPLODE requires a field argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	sep := ","
	if len(args) > 1 {
		sep = row.ToString(args[1].Literal)
	}
	parts := strings.Split(row.ToString(v), sep)
	out := make(row.Seq, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func implodeFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) < 1 {
		return nil, exerrors.UnexpectedValue.New("IMPLODE requires a field argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	sep := ","
	if len(args) > 1 {
		sep = row.ToString(args[1].Literal)
	}
	seq, ok := v.(row.Seq)
	if !ok {
		return nil, exerrors.TypeError.New("IMPLODE requires a sequence value")
	}
	parts := make([]string, len(seq))
	for i, e := range seq {
		parts[i] = row.ToString(e)
	}
	return strings.Join(parts, sep), nil
}

func lengthFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) != 1 {
		return nil, exerrors.UnexpectedValue.New("LENGTH requires exactly one argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	return int64(len([]rune(row.ToString(v)))), nil
}

func reverseFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) != 1 {
		return nil, exerrors.UnexpectedValue.New("REVERSE requires exactly one argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(row.ToString(v))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func base64EncodeFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) != 1 {
		return nil, exerrors.UnexpectedValue.New("BASE64_ENCODE requires exactly one argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(row.ToString(v))), nil
}

func base64DecodeFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) != 1 {
		return nil, exerrors.UnexpectedValue.New("BASE64_DECODE requires exactly one argument")
	}
	v, err := ctx.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(row.ToString(v))
	if err != nil {
		return nil, exerrors.TypeError.New("invalid base64 input")
	}
	return string(decoded), nil
}

const randomStringAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomStringFn builds an n-character random string from a host
// cryptographic RNG (spec section 5: "Random functions use a
// cryptographic RNG from the host; they must not share seed state
// between queries" — crypto/rand is stateless per call, so this holds
// trivially).
func randomStringFn(args []Arg) (row.Value, error) {
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
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = randomStringAlphabet[int(b)%len(randomStringAlphabet)]
	}
	return string(out), nil
}
