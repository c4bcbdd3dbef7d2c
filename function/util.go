package function

import "github.com/docql/docql/row"

func registerUtility(r *Registry) {
	r.Register(&Def{Name: "COALESCE", Kind: KindRow, Row: coalesceFn})
	r.Register(&Def{Name: "COALESCE_NE", Kind: KindRow, Row: coalesceNEFn})
}

// coalesceFn returns the first non-null argument, or null if all are null.
func coalesceFn(ctx *RowContext, args []Arg) (row.Value, error) {
	for _, a := range args {
		v, err := ctx.Resolve(a)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// coalesceNEFn returns the first non-null, non-empty-string argument.
func coalesceNEFn(ctx *RowContext, args []Arg) (row.Value, error) {
	for _, a := range args {
		v, err := ctx.Resolve(a)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v, nil
	}
	return nil, nil
}
