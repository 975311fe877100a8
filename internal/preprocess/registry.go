package preprocess

import (
	"fmt"

	"github.com/HugoDaniel/glslmod/internal/sourcemap"
)

// Kind is the kind of block a registry entry was defined by.
type Kind uint8

const (
	KindModule Kind = iota
	KindVertex
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindVertex:
		return "vertex"
	case KindFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Entry is a closed module.
type Entry struct {
	Name  string
	Kind  Kind
	Text  string             // fully expanded text
	Lines *sourcemap.LineMap // origin of every line of Text
	File  string             // file holding the opening directive
	Line  int                // line of the opening directive
}

// Registry maps module names to their expanded text. Names are case
// sensitive and unique; entries enumerate in insertion order.
type Registry struct {
	entries []*Entry
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Insert adds an entry. Inserting a name that is already present fails and
// leaves the existing entry untouched.
func (r *Registry) Insert(e *Entry) error {
	if prev, ok := r.index[e.Name]; ok {
		first := r.entries[prev]
		return fmt.Errorf("module %q already defined at %s:%d", e.Name, first.File, first.Line)
	}
	r.index[e.Name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i], true
}

// Entries returns every entry in insertion order.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}
