package function

import (
	"github.com/montanaflynn/stats"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/row"
)

// registerAggregates wires COUNT/SUM/AVG/MIN/MAX/GROUP_CONCAT. Numeric
// reductions lean on github.com/montanaflynn/stats (Sum/Mean/Min/Max/
// Round) instead of hand-rolled loops, the same "pull a stats library in
// for the arithmetic" instinct the rest of the pack's query-engine-shaped
// dependencies show.
func registerAggregates(r *Registry) {
	r.Register(&Def{Name: "COUNT", Kind: KindAggregate, Agg: countAgg})
	r.Register(&Def{Name: "SUM", Kind: KindAggregate, Agg: numericAgg(func(s stats.Float64Data) (float64, error) { return s.Sum() })})
	r.Register(&Def{Name: "AVG", Kind: KindAggregate, Agg: AvgAgg(defaultAvgDecimals)})
	r.Register(&Def{Name: "MIN", Kind: KindAggregate, Agg: numericAgg(func(s stats.Float64Data) (float64, error) { return s.Min() })})
	r.Register(&Def{Name: "MAX", Kind: KindAggregate, Agg: numericAgg(func(s stats.Float64Data) (float64, error) { return s.Max() })})
	r.Register(&Def{Name: "GROUP_CONCAT", Kind: KindAggregate, Agg: GroupConcatAgg(defaultGroupConcatSep)})
}

// nonNullValues resolves arg across every row in group, skipping rows
// where the value is absent or null — aggregates treat null as "absent"
// (spec section 7).
func nonNullValues(group []row.Value, arg Arg) ([]row.Value, error) {
	ctx := &RowContext{}
	out := make([]row.Value, 0, len(group))
	for _, r := range group {
		ctx.Row = r
		v, err := ctx.Resolve(arg)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func countAgg(group []row.Value, args []Arg) (row.Value, error) {
	if len(args) == 0 {
		return nil, exerrors.UnexpectedValue.New("COUNT requires one argument")
	}
	if args[0].IsField && args[0].Field == "*" {
		return int64(len(group)), nil
	}
	vals, err := nonNullValues(group, args[0])
	if err != nil {
		return nil, err
	}
	return int64(len(vals)), nil
}

func numericAgg(reduce func(stats.Float64Data) (float64, error)) AggFunc {
	return func(group []row.Value, args []Arg) (row.Value, error) {
		if len(args) == 0 {
			return nil, exerrors.UnexpectedValue.New("aggregate requires one argument")
		}
		vals, err := nonNullValues(group, args[0])
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, nil
		}
		floats := make(stats.Float64Data, 0, len(vals))
		for _, v := range vals {
			f, ok := row.ToFloat(v)
			if !ok {
				return nil, exerrors.TypeError.New("non-numeric value in aggregate")
			}
			floats = append(floats, f)
		}
		result, err := reduce(floats)
		if err != nil {
			return nil, exerrors.UnexpectedValue.New(err.Error())
		}
		if result == float64(int64(result)) {
			return int64(result), nil
		}
		return result, nil
	}
}

// defaultAvgDecimals and defaultGroupConcatSep are AVG/GROUP_CONCAT's
// defaults when the call omits its optional second argument (spec
// section 4.3: "AVG returns float with configurable decimal places
// (default 2)"; "GROUP_CONCAT joins ... with a configurable separator
// (default ',')"). An engine wanting a different default registers its
// own Def built from AvgAgg/GroupConcatAgg instead of these.
const (
	defaultAvgDecimals    = 2
	defaultGroupConcatSep = ","
)

// AvgAgg builds an AVG aggregate whose decimal-place default is
// defaultDecimals when the call doesn't pass an explicit second argument.
func AvgAgg(defaultDecimals int) AggFunc {
	return func(group []row.Value, args []Arg) (row.Value, error) {
		if len(args) == 0 {
			return nil, exerrors.UnexpectedValue.New("AVG requires one argument")
		}
		vals, err := nonNullValues(group, args[0])
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, nil
		}
		floats := make(stats.Float64Data, 0, len(vals))
		for _, v := range vals {
			f, ok := row.ToFloat(v)
			if !ok {
				return nil, exerrors.TypeError.New("non-numeric value in AVG")
			}
			floats = append(floats, f)
		}
		mean, err := floats.Mean()
		if err != nil {
			return nil, exerrors.UnexpectedValue.New(err.Error())
		}
		decimals := defaultDecimals
		if len(args) > 1 {
			if n, ok := row.ToInt(args[1].Literal); ok {
				decimals = int(n)
			}
		}
		rounded, err := stats.Round(mean, decimals)
		if err != nil {
			return nil, exerrors.UnexpectedValue.New(err.Error())
		}
		return rounded, nil
	}
}

// GroupConcatAgg builds a GROUP_CONCAT aggregate whose separator default
// is defaultSep when the call doesn't pass an explicit second argument.
func GroupConcatAgg(defaultSep string) AggFunc {
	return func(group []row.Value, args []Arg) (row.Value, error) {
		if len(args) == 0 {
			return nil, exerrors.UnexpectedValue.New("GROUP_CONCAT requires one argument")
		}
		sep := defaultSep
		if len(args) > 1 {
			sep = row.ToString(args[1].Literal)
		}
		vals, err := nonNullValues(group, args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = row.ToString(v)
		}
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += sep
			}
			out += p
		}
		return out, nil
	}
}
