// Package manifest parses artifact metadata documents.
//
// Documents are authored in YAML, or in JSON with comments (.json,
// .jsonc). Top-level keys other than the well-known fields are media
// queries keying conditional blocks:
//
//	info:
//	  id: compilers/gnu/gcc
//	  version: 12.2.0
//	requires:
//	  tools/kitware/cmake: ">=3.20"
//	windows and x64:
//	  install:
//	    unzip: https://example.com/gcc-win64.zip
//	    sha256: 0f1e...
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// IndexMarker is the first line of a persisted catalog index. Files that
// start with it are indexes, not metadata.
const IndexMarker = "# MANIFEST-INDEX"

var (
	// ErrEmptyDocument indicates a document with no content.
	ErrEmptyDocument = errors.New("empty document")
	// ErrNotMapping indicates a node that should be a mapping is not.
	ErrNotMapping = errors.New("expected a mapping")
	// ErrUnknownField indicates a field not allowed in a conditional block.
	ErrUnknownField = errors.New("unknown field")
)

// IsIndex reports whether data begins with the index marker line.
func IsIndex(data []byte) bool {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	return strings.TrimSpace(string(line)) == IndexMarker
}

// IsMetadataFile reports whether name has an extension Parse understands.
func IsMetadataFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".jsonc":
		return true
	default:
		return false
	}
}

// ReadFile reads and parses the metadata document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses a metadata document. name selects the format by
// extension and is used in error messages.
func Parse(data []byte, name string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonc":
		// JSON is read through the YAML parser, which rejects tab
		// indentation. Valid JSON has no raw tabs inside strings.
		data = bytes.ReplaceAll(jsonc.ToJSON(data), []byte("\t"), []byte(" "))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: line %d: %w", name, top.Line, ErrNotMapping)
	}

	doc := &Document{Source: name}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]

		switch key.Value {
		case "info":
			if err := value.Decode(&doc.Info); err != nil {
				return nil, fmt.Errorf("%s: info: %w", name, err)
			}
			continue
		case "contacts":
			contacts, err := parseContacts(value)
			if err != nil {
				return nil, fmt.Errorf("%s: contacts: %w", name, err)
			}
			doc.Contacts = contacts
			continue
		}

		handled, err := applyBlockField(&doc.Global, key.Value, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", name, key.Value, err)
		}
		if handled {
			continue
		}

		block, err := parseBlock(value)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: block %q: %w", name, key.Line, key.Value, err)
		}
		column := key.Column
		if key.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			column++ // point past the opening quote
		}
		doc.Entries = append(doc.Entries, Entry{
			Query:  key.Value,
			Block:  block,
			Line:   key.Line,
			Column: column,
		})
	}
	return doc, nil
}

// parseBlock decodes a conditional block. A null value is an empty block.
func parseBlock(node *yaml.Node) (Block, error) {
	var b Block
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return b, nil
	}
	if node.Kind != yaml.MappingNode {
		return b, ErrNotMapping
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		handled, err := applyBlockField(&b, key.Value, value)
		if err != nil {
			return b, fmt.Errorf("%s: %w", key.Value, err)
		}
		if !handled {
			return b, fmt.Errorf("line %d: %w %q", key.Line, ErrUnknownField, key.Value)
		}
	}
	return b, nil
}

// applyBlockField decodes one demand field into b. It reports false when
// field is not a demand field.
func applyBlockField(b *Block, field string, value *yaml.Node) (bool, error) {
	var err error
	switch field {
	case "requires":
		err = value.Decode(&b.Requires)
	case "see-also", "seeAlso":
		err = value.Decode(&b.SeeAlso)
	case "settings":
		err = value.Decode(&b.Settings)
	case "install":
		b.Install, err = parseInstallers(value)
	case "error":
		err = value.Decode(&b.Error)
	case "warning":
		err = value.Decode(&b.Warning)
	case "message":
		err = value.Decode(&b.Message)
	default:
		return false, nil
	}
	return true, err
}

// parseInstallers accepts either one installer mapping or a list of them.
func parseInstallers(node *yaml.Node) ([]Installer, error) {
	switch node.Kind {
	case yaml.MappingNode:
		var inst Installer
		if err := node.Decode(&inst); err != nil {
			return nil, err
		}
		return []Installer{inst}, nil
	case yaml.SequenceNode:
		var list []Installer
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("line %d: install must be a mapping or a list", node.Line)
}

func parseContacts(node *yaml.Node) ([]Contact, error) {
	if node.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	var out []Contact
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		c := Contact{Name: key.Value}
		if !(value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
			if err := value.Decode(&c); err != nil {
				return nil, fmt.Errorf("%s: %w", key.Value, err)
			}
		}
		c.Name = key.Value
		out = append(out, c)
	}
	return out, nil
}
