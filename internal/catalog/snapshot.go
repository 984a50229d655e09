package catalog

import "github.com/google/btree"

// Snapshot is the persisted form of a catalog: the targets by id and,
// per key, the ids under each value and each word.
type Snapshot struct {
	Items   []string               `yaml:"items" json:"items"`
	Indexes map[string]KeySnapshot `yaml:"indexes" json:"indexes"`
}

// KeySnapshot is the persisted form of one key.
type KeySnapshot struct {
	Keys  map[string][]int `yaml:"keys" json:"keys"`
	Words map[string][]int `yaml:"words,omitempty" json:"words,omitempty"`
}

// Serialize captures the catalog's targets and keys.
func (c *Catalog[T]) Serialize() *Snapshot {
	s := &Snapshot{
		Items:   append([]string(nil), c.targets...),
		Indexes: make(map[string]KeySnapshot, len(c.byName)),
	}
	for name, k := range c.byName {
		ks := KeySnapshot{Keys: dump(k.tree)}
		if k.words != nil {
			ks.Words = dump(k.words)
		}
		s.Indexes[name] = ks
	}
	return s
}

// Deserialize replaces the catalog's contents with s. Keys in s that the
// catalog does not declare are ignored; declared keys missing from s are
// left empty. Ids are not checked against the item list.
func (c *Catalog[T]) Deserialize(s *Snapshot) {
	c.Reset()
	if s == nil {
		return
	}
	c.targets = append([]string(nil), s.Items...)
	for name, ks := range s.Indexes {
		k, ok := c.byName[name]
		if !ok {
			continue
		}
		for value, ids := range ks.Keys {
			e := k.probe(value)
			e.ids = mergeIDs(nil, ids)
			k.tree.ReplaceOrInsert(e)
		}
		if k.words == nil {
			continue
		}
		for word, ids := range ks.Words {
			k.words.ReplaceOrInsert(&entry{key: word, valid: true, ids: mergeIDs(nil, ids)})
		}
	}
}

func dump(tree *btree.BTreeG[*entry]) map[string][]int {
	out := make(map[string][]int, tree.Len())
	tree.Ascend(func(e *entry) bool {
		out[e.key] = append([]int(nil), e.ids...)
		return true
	})
	return out
}
