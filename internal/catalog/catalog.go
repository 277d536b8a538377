// Package catalog loads analyzer display metadata (name, detail) from YAML.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// testMarker in a display name hides the entry from listings
const testMarker = "테스트"

// Entry describes one analyzer
type Entry struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Detail string `yaml:"detail"`
	Test   bool   `yaml:"test"`
}

// Hidden reports whether the entry is a test analyzer
func (e Entry) Hidden() bool {
	return e.Test || strings.Contains(e.Name, testMarker)
}

// Catalog is the ordered analyzer catalog
// ⭐ SSOT: 분석기 표시 이름은 여기서만
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
}

type file struct {
	Analyzers []Entry `yaml:"analyzers"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a catalog, rejecting unknown fields and duplicate ids
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Entry, len(doc.Analyzers))}
	for i, e := range doc.Analyzers {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: empty id", i)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, e.ID)
		}
		if e.Name == "" {
			e.Name = e.ID
		}
		c.entries = append(c.entries, e)
		c.byID[e.ID] = e
	}

	return c, nil
}

// Get returns the entry for id
func (c *Catalog) Get(id string) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Name returns the display name for id, or id itself when unknown
func (c *Catalog) Name(id string) string {
	if e, ok := c.byID[id]; ok {
		return e.Name
	}
	return id
}

// List returns visible entries in catalog order. When available is non-nil,
// only entries it accepts are listed (analyzers without an implementation are hidden).
func (c *Catalog) List(available func(id string) bool) []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Hidden() {
			continue
		}
		if available != nil && !available(e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// NameDict maps analyzer id to display name for every entry
func (c *Catalog) NameDict() map[string]string {
	names := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		names[e.ID] = e.Name
	}
	return names
}

// Entries returns every entry in catalog order, hidden ones included
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
