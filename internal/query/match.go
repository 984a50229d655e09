package query

import (
	"fmt"
	"sort"
	"strconv"
)

// Context maps host feature names to scalar values. A feature is absent
// when its key is missing or its value is nil.
type Context map[string]any

// Lookup returns the value of feature and whether it is present.
func (c Context) Lookup(feature string) (any, bool) {
	v, ok := c[feature]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the present feature names, sorted.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Match reports whether any query in the list matches ctx. An invalid
// or empty list never matches.
func (l *List) Match(ctx Context) bool {
	if l.Err != nil {
		return false
	}
	for _, q := range l.Queries {
		if q.Match(ctx) {
			return true
		}
	}
	return false
}

// Match reports whether every expression matches ctx.
func (q Query) Match(ctx Context) bool {
	if len(q.Expressions) == 0 {
		return false
	}
	for _, e := range q.Expressions {
		if !e.Match(ctx) {
			return false
		}
	}
	return true
}

// Match evaluates the expression against ctx.
//
// An expression holds when the feature is present or when it is negated
// without a constant, so a bare "not feature" always matches. A constant
// additionally requires the feature to be present and equal to it, or
// unequal when negated.
func (e Expression) Match(ctx Context) bool {
	value, present := ctx.Lookup(e.Feature)
	if e.Constant == nil {
		return present || e.Negated
	}
	if !present {
		return false
	}
	equal := canonical(value) == canonical(e.Constant.Value())
	return equal != e.Negated
}

// canonical renders a scalar so that values of different Go types
// compare loosely: 10, 10.0 and "10" are all equal.
func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case int64:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case uint64:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
