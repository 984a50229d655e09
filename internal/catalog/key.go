package catalog

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/google/btree"
)

// Kind selects how the values of a key are ordered.
type Kind int

const (
	// String orders keys lexically by byte value.
	String Kind = iota
	// Semver orders keys as semantic versions. Keys that do not parse
	// sort before every valid version, lexically among themselves.
	Semver
	// Number orders keys numerically. Keys that do not parse sort before
	// every number, lexically among themselves.
	Number
)

func (k Kind) String() string {
	switch k {
	case Semver:
		return "semver"
	case Number:
		return "number"
	default:
		return "string"
	}
}

// KeySpec declares one searchable key of a catalog.
type KeySpec[T any] struct {
	// Name identifies the key. Nested keys are addressed as
	// "parent.child".
	Name string
	Kind Kind
	// Words also indexes every word of each value for Contains.
	Words bool
	// Extract returns the values of the key for item. For a nested key,
	// parent is one value returned by the enclosing key; otherwise nil.
	// A value's index key is its string form (see KeyString).
	Extract func(item T, parent any) []any
	Nested  []KeySpec[T]
}

const treeDegree = 16

// entry is one distinct key value and the sorted ids of the items
// carrying it.
type entry struct {
	key   string
	ver   *semver.Version
	num   float64
	valid bool
	ids   []int
}

// key is the runtime form of a KeySpec: an ordered tree over its values
// and an optional word tree.
type key[T any] struct {
	name    string
	kind    Kind
	extract func(item T, parent any) []any
	tree    *btree.BTreeG[*entry]
	words   *btree.BTreeG[*entry]
	nested  []*key[T]
}

func newKey[T any](prefix string, spec KeySpec[T]) *key[T] {
	name := spec.Name
	if prefix != "" {
		name = prefix + "." + spec.Name
	}
	k := &key[T]{
		name:    name,
		kind:    spec.Kind,
		extract: spec.Extract,
		tree:    btree.NewG(treeDegree, lessFor(spec.Kind)),
	}
	if spec.Words {
		k.words = btree.NewG(treeDegree, lessFor(String))
	}
	for _, n := range spec.Nested {
		k.nested = append(k.nested, newKey(name, n))
	}
	return k
}

// probe builds a search entry for value under the key's kind.
func (k *key[T]) probe(value string) *entry {
	e := &entry{key: value}
	switch k.kind {
	case Semver:
		if v, err := semver.NewVersion(value); err == nil {
			e.ver, e.valid = v, true
		}
	case Number:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			e.num, e.valid = f, true
		}
	default:
		e.valid = true
	}
	return e
}

func (k *key[T]) add(value string, id int) {
	addTo(k.tree, k.probe(value), id)
	if k.words != nil {
		for _, w := range Tokenize(value) {
			addTo(k.words, &entry{key: w, valid: true}, id)
		}
	}
}

func addTo(tree *btree.BTreeG[*entry], e *entry, id int) {
	if found, ok := tree.Get(e); ok {
		if n := len(found.ids); n == 0 || found.ids[n-1] != id {
			found.ids = append(found.ids, id)
		}
		return
	}
	e.ids = []int{id}
	tree.ReplaceOrInsert(e)
}

func (k *key[T]) clear() {
	k.tree.Clear(false)
	if k.words != nil {
		k.words.Clear(false)
	}
	for _, n := range k.nested {
		n.clear()
	}
}

// walk calls fn for k and every key nested below it.
func (k *key[T]) walk(fn func(*key[T])) {
	fn(k)
	for _, n := range k.nested {
		n.walk(fn)
	}
}

func lessFor(kind Kind) btree.LessFunc[*entry] {
	return func(a, b *entry) bool {
		if a.valid != b.valid {
			return !a.valid
		}
		if a.valid {
			switch kind {
			case Semver:
				if c := a.ver.Compare(b.ver); c != 0 {
					return c < 0
				}
			case Number:
				if a.num != b.num {
					return a.num < b.num
				}
			}
		}
		return a.key < b.key
	}
}

// KeyString returns the index key for a value: strings as is, numbers
// in shortest form, fmt.Stringer values through String, anything else
// through fmt.Sprint.
func KeyString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// mergeIDs appends the ids of src to dst and returns the sorted,
// deduplicated union.
func mergeIDs(dst, src []int) []int {
	dst = append(dst, src...)
	slices.Sort(dst)
	return slices.Compact(dst)
}
