package catalog

import (
	"regexp"
	"slices"
	"strings"
)

// Selection is a set of item ids. The zero value selects nothing; All
// selects every item without materializing the ids.
type Selection struct {
	all bool
	ids []int
}

// All returns a selection of every item.
func All() Selection {
	return Selection{all: true}
}

// Subset returns a selection of ids, which must be sorted.
func Subset(ids []int) Selection {
	return Selection{ids: ids}
}

// IsAll reports whether the selection is unrestricted.
func (s Selection) IsAll() bool {
	return s.all
}

// intersect narrows s to ids, which must be sorted.
func (s Selection) intersect(ids []int) Selection {
	if s.all {
		return Subset(slices.Clone(ids))
	}
	out := make([]int, 0, min(len(s.ids), len(ids)))
	i, j := 0, 0
	for i < len(s.ids) && j < len(ids) {
		switch {
		case s.ids[i] < ids[j]:
			i++
		case s.ids[i] > ids[j]:
			j++
		default:
			out = append(out, s.ids[i])
			i++
			j++
		}
	}
	return Subset(out)
}

// Cursor is a narrowing search over a catalog. Every filter intersects
// the current selection and returns the cursor, so filters chain:
//
//	c.Where().Contains("id", "gcc").GreaterThan("version", "12.0.0").Targets()
//
// Filters on a key the catalog does not have select nothing.
type Cursor[T any] struct {
	catalog *Catalog[T]
	sel     Selection
}

// Clone returns an independent cursor with the same selection.
func (c *Cursor[T]) Clone() *Cursor[T] {
	return &Cursor[T]{catalog: c.catalog, sel: Selection{all: c.sel.all, ids: slices.Clone(c.sel.ids)}}
}

// Selection returns the current selection.
func (c *Cursor[T]) Selection() Selection {
	return c.sel
}

// Equals keeps items whose key has exactly value.
func (c *Cursor[T]) Equals(name, value string) *Cursor[T] {
	k, ok := c.catalog.byName[name]
	if !ok {
		return c.none()
	}
	var ids []int
	if e, found := k.tree.Get(k.probe(value)); found {
		ids = e.ids
	}
	c.sel = c.sel.intersect(ids)
	return c
}

// Contains keeps items whose key contains every word of text. The key
// must be declared with Words.
func (c *Cursor[T]) Contains(name, text string) *Cursor[T] {
	k, ok := c.catalog.byName[name]
	if !ok || k.words == nil {
		return c.none()
	}
	words := Tokenize(text)
	if len(words) == 0 {
		return c.none()
	}
	for _, w := range words {
		var ids []int
		if e, found := k.words.Get(&entry{key: w, valid: true}); found {
			ids = e.ids
		}
		c.sel = c.sel.intersect(ids)
	}
	return c
}

// GreaterThan keeps items with a key value at or above value.
func (c *Cursor[T]) GreaterThan(name, value string) *Cursor[T] {
	k, ok := c.catalog.byName[name]
	if !ok {
		return c.none()
	}
	var ids []int
	k.tree.AscendGreaterOrEqual(k.probe(value), func(e *entry) bool {
		ids = append(ids, e.ids...)
		return true
	})
	return c.narrow(ids)
}

// LessThan keeps items with a key value strictly below value.
func (c *Cursor[T]) LessThan(name, value string) *Cursor[T] {
	k, ok := c.catalog.byName[name]
	if !ok {
		return c.none()
	}
	var ids []int
	k.tree.AscendLessThan(k.probe(value), func(e *entry) bool {
		ids = append(ids, e.ids...)
		return true
	})
	return c.narrow(ids)
}

// StartsWith keeps items with a key value beginning with prefix.
func (c *Cursor[T]) StartsWith(name, prefix string) *Cursor[T] {
	return c.scan(name, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

// EndsWith keeps items with a key value ending with suffix.
func (c *Cursor[T]) EndsWith(name, suffix string) *Cursor[T] {
	return c.scan(name, func(s string) bool { return strings.HasSuffix(s, suffix) })
}

// Match keeps items with a key value containing substr.
func (c *Cursor[T]) Match(name, substr string) *Cursor[T] {
	return c.scan(name, func(s string) bool { return strings.Contains(s, substr) })
}

// MatchRegexp keeps items with a key value matched by re.
func (c *Cursor[T]) MatchRegexp(name string, re *regexp.Regexp) *Cursor[T] {
	return c.scan(name, re.MatchString)
}

func (c *Cursor[T]) scan(name string, pred func(string) bool) *Cursor[T] {
	k, ok := c.catalog.byName[name]
	if !ok {
		return c.none()
	}
	var ids []int
	k.tree.Ascend(func(e *entry) bool {
		if pred(e.key) {
			ids = append(ids, e.ids...)
		}
		return true
	})
	return c.narrow(ids)
}

func (c *Cursor[T]) narrow(ids []int) *Cursor[T] {
	ids = mergeIDs(nil, ids)
	c.sel = c.sel.intersect(ids)
	return c
}

func (c *Cursor[T]) none() *Cursor[T] {
	c.sel = Subset(nil)
	return c
}

// IDs returns the selected item ids in ascending order.
func (c *Cursor[T]) IDs() []int {
	if !c.sel.all {
		return slices.Clone(c.sel.ids)
	}
	ids := make([]int, len(c.catalog.targets))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Targets returns the selected targets in id order. Ids without a
// target are skipped.
func (c *Cursor[T]) Targets() []string {
	var out []string
	for _, id := range c.IDs() {
		if t, ok := c.catalog.Target(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of selected targets.
func (c *Cursor[T]) Count() int {
	return len(c.Targets())
}
