package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dictionary is an insertion-ordered string map used for requires and
// see-also blocks.
type Dictionary struct {
	keys   []string
	values map[string]string
}

// Set stores value under key. A new key is appended; an existing key
// keeps its position and takes the new value.
func (d *Dictionary) Set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d *Dictionary) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.keys)
}

// Merge copies every entry of other into d; other wins on collision.
func (d *Dictionary) Merge(other *Dictionary) {
	for _, k := range other.keys {
		d.Set(k, other.values[k])
	}
}

// UnmarshalYAML decodes a mapping of scalars, preserving key order. A
// null value decodes as the empty string.
func (d *Dictionary) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value for %q must be a scalar", v.Line, k.Value)
		}
		value := v.Value
		if v.Tag == "!!null" {
			value = ""
		}
		d.Set(k.Value, value)
	}
	return nil
}

// StringList decodes from either a single scalar or a sequence.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// Settings are the activation settings contributed by one block. This
// package only carries them; merging is left to activation.
type Settings struct {
	Paths      map[string]StringList `yaml:"paths,omitempty"`
	Tools      map[string]string     `yaml:"tools,omitempty"`
	Variables  map[string]StringList `yaml:"variables,omitempty"`
	Properties map[string]StringList `yaml:"properties,omitempty"`
	Defines    map[string]string     `yaml:"defines,omitempty"`
}

// IsEmpty reports whether no setting is defined.
func (s Settings) IsEmpty() bool {
	return len(s.Paths) == 0 && len(s.Tools) == 0 && len(s.Variables) == 0 &&
		len(s.Properties) == 0 && len(s.Defines) == 0
}

// Installer describes one way to acquire an artifact's payload.
type Installer struct {
	Unzip     string     `yaml:"unzip,omitempty"`
	Untar     string     `yaml:"untar,omitempty"`
	Nupkg     string     `yaml:"nupkg,omitempty"`
	Git       string     `yaml:"git,omitempty"`
	SHA256    string     `yaml:"sha256,omitempty"`
	SHA512    string     `yaml:"sha512,omitempty"`
	Strip     int        `yaml:"strip,omitempty"`
	Transform StringList `yaml:"transform,omitempty"`
	Commit    string     `yaml:"commit,omitempty"`
	Full      bool       `yaml:"full,omitempty"`
	Recurse   bool       `yaml:"recurse,omitempty"`
}

// Kind returns the installer type, or "" when none is set.
func (i Installer) Kind() string {
	switch {
	case i.Unzip != "":
		return "unzip"
	case i.Untar != "":
		return "untar"
	case i.Nupkg != "":
		return "nupkg"
	case i.Git != "":
		return "git"
	default:
		return ""
	}
}

// Location returns the source location for the installer's kind.
func (i Installer) Location() string {
	switch i.Kind() {
	case "unzip":
		return i.Unzip
	case "untar":
		return i.Untar
	case "nupkg":
		return i.Nupkg
	case "git":
		return i.Git
	default:
		return ""
	}
}

// Block is one demand block: the unconditional block of a document or a
// block keyed by a media query.
type Block struct {
	Requires Dictionary
	SeeAlso  Dictionary
	Settings Settings
	Install  []Installer
	Error    string
	Warning  string
	Message  string
}

// HasInstall reports whether the block supplies any installer.
func (b *Block) HasInstall() bool {
	return len(b.Install) > 0
}

// Info identifies an artifact.
type Info struct {
	ID          string     `yaml:"id"`
	Version     string     `yaml:"version"`
	Summary     string     `yaml:"summary,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Options     StringList `yaml:"options,omitempty"`
}

// Contact is a named person or team responsible for an artifact.
type Contact struct {
	Name  string     `yaml:"-"`
	Email StringList `yaml:"email,omitempty"`
	Role  StringList `yaml:"role,omitempty"`
}

func (c Contact) String() string {
	return c.Name
}

// Entry is a conditional block together with its key and the position
// of the key in the source document.
type Entry struct {
	Query  string
	Block  Block
	Line   int
	Column int
}

// Document is a parsed metadata document.
type Document struct {
	Source   string // file name used in diagnostics
	Info     Info
	Contacts []Contact
	Global   Block   // the unconditional block
	Entries  []Entry // conditional blocks in document order
}
