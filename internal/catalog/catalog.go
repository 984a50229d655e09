// Package catalog is an in-memory, multi-key ordered index over a corpus
// of items. Each inserted item is stored as a target string (typically
// the path it was read from) and indexed under every declared key. A
// catalog can be serialized to a Snapshot and restored without the
// original items.
//
// A Catalog is not safe for concurrent mutation; callers that insert
// while others search must provide their own locking.
package catalog

import "sort"

// Catalog indexes items of type T.
type Catalog[T any] struct {
	targets []string
	keys    []*key[T]
	byName  map[string]*key[T]
}

// New returns an empty catalog with the given keys.
func New[T any](specs ...KeySpec[T]) *Catalog[T] {
	c := &Catalog[T]{byName: make(map[string]*key[T])}
	for _, s := range specs {
		k := newKey("", s)
		c.keys = append(c.keys, k)
		k.walk(func(k *key[T]) { c.byName[k.name] = k })
	}
	return c
}

// Insert appends target and indexes item under every key. It returns
// the id assigned to target.
func (c *Catalog[T]) Insert(item T, target string) int {
	id := len(c.targets)
	c.targets = append(c.targets, target)
	for _, k := range c.keys {
		c.index(k, item, nil, id)
	}
	return id
}

func (c *Catalog[T]) index(k *key[T], item T, parent any, id int) {
	if k.extract == nil {
		return
	}
	for _, v := range k.extract(item, parent) {
		if v == nil {
			continue
		}
		k.add(KeyString(v), id)
		for _, n := range k.nested {
			c.index(n, item, v, id)
		}
	}
}

// Reset removes every target and key value.
func (c *Catalog[T]) Reset() {
	c.targets = nil
	for _, k := range c.keys {
		k.clear()
	}
}

// Len returns the number of targets.
func (c *Catalog[T]) Len() int {
	return len(c.targets)
}

// Target returns the target stored under id.
func (c *Catalog[T]) Target(id int) (string, bool) {
	if id < 0 || id >= len(c.targets) {
		return "", false
	}
	return c.targets[id], true
}

// Keys returns the names of every key, nested keys included, sorted.
func (c *Catalog[T]) Keys() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Values returns the distinct values of key in key order.
func (c *Catalog[T]) Values(name string) []string {
	k, ok := c.byName[name]
	if !ok {
		return nil
	}
	var out []string
	k.tree.Ascend(func(e *entry) bool {
		out = append(out, e.key)
		return true
	})
	return out
}

// Where returns a cursor selecting every target.
func (c *Catalog[T]) Where() *Cursor[T] {
	return &Cursor[T]{catalog: c, sel: All()}
}
