package condition

import (
	"fmt"

	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/row"
)

// Evaluate walks the tree against r. strictPath controls path-access
// strictness: WHERE evaluates with strictPath=false (a missing field
// resolves to nil rather than erroring — spec section 7); HAVING
// evaluates with strictPath=true against the already-projected row, so a
// HAVING key that isn't a projected finalName raises MissingField.
// A nil tree (no WHERE/HAVING clause) evaluates to true.
func Evaluate(tree *Group, r row.Value, strictPath bool) (bool, error) {
	if tree == nil || len(tree.Children) == 0 {
		return true, nil
	}
	result, err := evalNode(tree.Children[0], r, strictPath)
	if err != nil {
		return false, err
	}
	for _, child := range tree.Children[1:] {
		switch child.linkOp() {
		case AND:
			if !result {
				continue // short-circuit: remaining AND can't flip a false
			}
			v, err := evalNode(child, r, strictPath)
			if err != nil {
				return false, err
			}
			result = result && v
		case OR:
			if result {
				continue // short-circuit: remaining OR can't flip a true
			}
			v, err := evalNode(child, r, strictPath)
			if err != nil {
				return false, err
			}
			result = result || v
		case XOR:
			v, err := evalNode(child, r, strictPath)
			if err != nil {
				return false, err
			}
			result = result != v
		default:
			return false, exerrors.UnexpectedValue.New(fmt.Sprintf("unknown link operator %v", child.linkOp()))
		}
	}
	return result, nil
}

func evalNode(n Node, r row.Value, strictPath bool) (bool, error) {
	switch t := n.(type) {
	case *Leaf:
		return evalLeaf(t, r, strictPath)
	case *Group:
		return Evaluate(t, r, strictPath)
	default:
		return false, exerrors.UnexpectedValue.New(fmt.Sprintf("unknown condition node %T", n))
	}
}

func evalLeaf(l *Leaf, r row.Value, strictPath bool) (bool, error) {
	left, err := row.Get(r, l.Key, strictPath)
	if err != nil {
		return false, err
	}
	switch l.Op {
	case Eq:
		return row.Equal(left, l.Value), nil
	case Ne:
		return !row.Equal(left, l.Value), nil
	case Lt, Le, Gt, Ge:
		c, _ := row.Compare(left, l.Value)
		switch l.Op {
		case Lt:
			return c < 0, nil
		case Le:
			return c <= 0, nil
		case Gt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case Like:
		return matchLike(left, l.Value)
	case NotLike:
		m, err := matchLike(left, l.Value)
		return !m, err
	case In:
		return matchIn(left, l.Value)
	case NotIn:
		m, err := matchIn(left, l.Value)
		return !m, err
	case Is:
		return left == nil, nil
	case IsNot:
		return left != nil, nil
	default:
		return false, exerrors.UnexpectedValue.New(fmt.Sprintf("unknown compare operator %v", l.Op))
	}
}

func matchIn(left row.Value, values row.Value) (bool, error) {
	seq, ok := values.(row.Seq)
	if !ok {
		return false, exerrors.TypeError.New("IN/NOT IN requires a sequence value")
	}
	for _, v := range seq {
		if row.Equal(left, v) {
			return true, nil
		}
	}
	return false, nil
}
