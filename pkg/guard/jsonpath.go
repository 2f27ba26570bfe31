package guard

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/rxmux/pkg/flow"
)

// JSONPath returns a predicate over the JSON request body. With a nil
// expected value it holds when path selects anything; otherwise it holds
// when any selected value equals expected (numbers compare by value).
func JSONPath(path string, expected any) (flow.Predicate, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("parse jsonpath %q: %w", path, err)
	}

	return func(p *flow.Packet) (bool, error) {
		body, err := Body(p)
		if errors.Is(err, ErrInvalidBody) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		results := x.Get(body)
		if expected == nil {
			return len(results) > 0, nil
		}
		for _, r := range results {
			if valuesEqual(r, expected) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

// MustJSONPath is JSONPath that panics on an invalid path.
func MustJSONPath(path string, expected any) flow.Predicate {
	pred, err := JSONPath(path, expected)
	if err != nil {
		panic(err)
	}
	return pred
}

func valuesEqual(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	a, aNum := toFloat64(actual)
	e, eNum := toFloat64(expected)
	return aNum && eNum && a == e
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
