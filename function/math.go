package function

import (
	"math"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/row"
)

func registerMath(r *Registry) {
	r.Register(&Def{Name: "CEIL", Kind: KindRow, Row: unaryMath(math.Ceil)})
	r.Register(&Def{Name: "FLOOR", Kind: KindRow, Row: unaryMath(math.Floor)})
	r.Register(&Def{Name: "ROUND", Kind: KindRow, Row: roundFn})
	r.Register(&Def{Name: "MOD", Kind: KindRow, Row: modFn})
}

func resolveFloat(ctx *RowContext, a Arg) (float64, error) {
	v, err := ctx.Resolve(a)
	if err != nil {
		return 0, err
	}
	f, ok := row.ToFloat(v)
	if !ok {
		return 0, exerrors.TypeError.New("non-numeric value where numeric required")
	}
	return f, nil
}

func unaryMath(f func(float64) float64) RowFunc {
	return func(ctx *RowContext, args []Arg) (row.Value, error) {
		if len(args) != 1 {
			return nil, exerrors.UnexpectedValue.New("function requires exactly one argument")
		}
		v, err := resolveFloat(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return int64(f(v)), nil
	}
}

// roundFn takes an integer precision argument (spec section 4.3: "ROUND/MOD
// take integer precision/divisor arguments").
func roundFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) == 0 {
		return nil, exerrors.UnexpectedValue.New("ROUND requires a field argument")
	}
	v, err := resolveFloat(ctx, args[0])
	if err != nil {
		return nil, err
	}
	precision := 0
	if len(args) > 1 {
		n, ok := row.ToInt(args[1].Literal)
		if !ok {
			return nil, exerrors.TypeError.New("ROUND precision must be an integer")
		}
		precision = int(n)
	}
	mult := math.Pow(10, float64(precision))
	rounded := math.Round(v*mult) / mult
	if precision <= 0 {
		return int64(rounded), nil
	}
	return rounded, nil
}

func modFn(ctx *RowContext, args []Arg) (row.Value, error) {
	if len(args) != 2 {
		return nil, exerrors.UnexpectedValue.New("MOD requires a field and a divisor")
	}
	v, err := resolveFloat(ctx, args[0])
	if err != nil {
		return nil, err
	}
	divisor, ok := row.ToInt(args[1].Literal)
	if !ok {
		return nil, exerrors.TypeError.New("MOD divisor must be an integer")
	}
	if divisor == 0 {
		return nil, exerrors.TypeError.New("MOD by zero")
	}
	return int64(v) % divisor, nil
}
