package mob

import (
	"fmt"
	"strings"
)

// Defaults rate any kind without a template.
type Defaults struct {
	Difficulty      int
	PhysicalDefense int
}

// Registry answers rating lookups by mob kind. It is immutable after
// construction and safe for concurrent reads.
type Registry struct {
	byKind   map[string]*Template
	defaults Defaults
}

// NewRegistry indexes templates by kind.
//
// Postcondition: returns an error if two templates share a kind.
func NewRegistry(templates []*Template, defaults Defaults) (*Registry, error) {
	r := &Registry{byKind: make(map[string]*Template, len(templates)), defaults: defaults}
	for _, t := range templates {
		if _, dup := r.byKind[t.Kind]; dup {
			return nil, fmt.Errorf("mob: kind %q already registered", t.Kind)
		}
		r.byKind[t.Kind] = t
	}
	return r, nil
}

// Template returns the template for kind and whether one is registered.
func (r *Registry) Template(kind string) (*Template, bool) {
	t, ok := r.byKind[normalize(kind)]
	return t, ok
}

// Difficulty returns the gain difficulty of fighting kind.
func (r *Registry) Difficulty(kind string) int {
	if t, ok := r.Template(kind); ok {
		return t.Difficulty
	}
	return r.defaults.Difficulty
}

// PhysicalDefense returns kind's physical defense rating.
func (r *Registry) PhysicalDefense(kind string) int {
	if t, ok := r.Template(kind); ok {
		return t.PhysicalDefense
	}
	return r.defaults.PhysicalDefense
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int { return len(r.byKind) }

func normalize(kind string) string { return strings.ToLower(strings.TrimSpace(kind)) }
