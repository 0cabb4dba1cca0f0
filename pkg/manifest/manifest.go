// Package manifest reads the host project's package.json.
//
// The reader is lazy and caches its result: the file is parsed at most once
// per [Reader], and an absent manifest is a valid, cached outcome rather than
// an error.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/stackpack/pkg/errors"
)

// FileName is the manifest file probed in the project root.
const FileName = "package.json"

// Field is one top-level manifest entry, kept in document order.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Manifest is the parsed host manifest.
type Manifest struct {
	Name                 string
	Version              string
	Dependencies         map[string]string
	DevDependencies      map[string]string
	PeerDependencies     map[string]string
	OptionalDependencies map[string]string

	// Fields holds every top-level entry in the order the document declares
	// them. Dependency lookups walk this list rather than the typed maps.
	Fields []Field
}

type packageFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// Parse decodes a manifest document. The document must be a JSON object.
func Parse(data []byte) (*Manifest, error) {
	m, err := parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "malformed manifest")
	}
	return m, nil
}

func parse(data []byte) (*Manifest, error) {
	fields, err := topLevelFields(data)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Fields: fields}
	for _, f := range fields {
		var target any
		switch f.Key {
		case "name":
			target = &m.Name
		case "version":
			target = &m.Version
		case "dependencies":
			target = &m.Dependencies
		case "devDependencies":
			target = &m.DevDependencies
		case "peerDependencies":
			target = &m.PeerDependencies
		case "optionalDependencies":
			target = &m.OptionalDependencies
		default:
			continue
		}
		if err := json.Unmarshal(f.Value, target); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	return m, nil
}

// topLevelFields splits a JSON object into its members without losing
// declaration order.
func topLevelFields(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after manifest object")
	}
	return fields, nil
}

// DependencyVersion scans every top-level field whose lowercased key contains
// "dependencies" in document order and returns the first declared version of
// name. Non-object fields (bundledDependencies arrays) are skipped, and an
// empty version string does not count as a declaration.
func (m *Manifest) DependencyVersion(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, f := range m.Fields {
		if !strings.Contains(strings.ToLower(f.Key), "dependencies") {
			continue
		}
		var group map[string]json.RawMessage
		if err := json.Unmarshal(f.Value, &group); err != nil {
			continue
		}
		raw, ok := group[name]
		if !ok {
			continue
		}
		var version string
		if err := json.Unmarshal(raw, &version); err != nil || version == "" {
			continue
		}
		return version, true
	}
	return "", false
}

// HasDependency reports whether name is declared in any dependency group.
func (m *Manifest) HasDependency(name string) bool {
	_, ok := m.DependencyVersion(name)
	return ok
}

// PeerDependencyNames returns the declared peer dependencies, sorted.
func (m *Manifest) PeerDependencyNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.PeerDependencies))
	for name := range m.PeerDependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the raw value of the top-level key.
func (m *Manifest) Field(key string) (json.RawMessage, bool) {
	if m == nil {
		return nil, false
	}
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// HasField reports whether key is present with a non-null value.
func (m *Manifest) HasField(key string) bool {
	v, ok := m.Field(key)
	return ok && string(v) != "null"
}
