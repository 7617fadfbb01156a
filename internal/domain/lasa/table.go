// Package lasa holds the look-alike/sound-alike medication table: an
// immutable mapping from a medication name to the name it is commonly
// confused with.
package lasa

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry is one confusable pair.
type Entry struct {
	Name       string `json:"name"`
	Confusable string `json:"confusable"`
}

// Matcher resolves a reported name to its confusable alternate. It must be a
// pure function of its input.
type Matcher interface {
	Lookup(name string) (string, bool)
}

// Table is an exact-match Matcher. It is read-only after construction and
// safe for concurrent use without locking.
type Table struct {
	entries map[string]string
}

// NewTable copies entries into a Table, rejecting blank names.
func NewTable(entries map[string]string) (*Table, error) {
	m := make(map[string]string, len(entries))
	for name, alt := range entries {
		name, alt = strings.TrimSpace(name), strings.TrimSpace(alt)
		if name == "" || alt == "" {
			return nil, fmt.Errorf("lasa: blank name in pair %q -> %q", name, alt)
		}
		if name == alt {
			return nil, fmt.Errorf("lasa: %q maps to itself", name)
		}
		m[name] = alt
	}
	return &Table{entries: m}, nil
}

// Load reads a JSON object of the form {"Name": "Confusable", ...}.
func Load(r io.Reader) (*Table, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("lasa: failed to decode table: %w", err)
	}
	return NewTable(raw)
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lasa: failed to open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns the confusable alternate for name. Matching is exact and
// case-sensitive.
func (t *Table) Lookup(name string) (string, bool) {
	alt, ok := t.entries[name]
	return alt, ok
}

// Len is the number of pairs.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns all pairs sorted by name.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for name, alt := range t.entries {
		out = append(out, Entry{Name: name, Confusable: alt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

//Personal.AI order the ending
