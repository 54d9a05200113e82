package schema

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// A Registry holds finalized type descriptors and the foreign-key binding
// graph between their tables. Population happens through Register; lookups
// are read-only and safe for concurrent use.
//
// Foreign keys are recorded by referenced *table*, not by type, so a column
// may reference a table whose type is registered later, or its own table.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
	// refs maps parent table -> child type name -> binding group.
	refs  map[string]map[string][]Binding
	group singleflight.Group
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*Type),
		refs:  make(map[string]map[string][]Binding),
	}
}

// global is the process-wide registry used by the package-level functions.
var global = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return global }

// Register finalizes the given type and records it under its name.
// Registering the same name twice returns the descriptor computed by the
// first call; concurrent registrations of one name are collapsed so the
// descriptor is computed exactly once.
func (r *Registry) Register(t Type) (*Type, error) {
	v, err, _ := r.group.Do(t.Name, func() (any, error) {
		r.mu.RLock()
		existing, ok := r.types[t.Name]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}
		if err := t.finalize(); err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.types[t.Name] = &t
		for _, c := range t.Columns {
			ref := c.Ref()
			if ref == nil {
				continue
			}
			children, ok := r.refs[ref.Table]
			if !ok {
				children = make(map[string][]Binding)
				r.refs[ref.Table] = children
			}
			children[t.Name] = append(children[t.Name], Binding{
				ChildColumn:  c.Name(),
				ParentColumn: ref.Column,
			})
		}
		return &t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Type), nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level type declarations where a failure is a programming error.
func (r *Registry) MustRegister(t Type) *Type {
	typ, err := r.Register(t)
	if err != nil {
		panic(err)
	}
	return typ
}

// Lookup returns the registered type with the given name.
func (r *Registry) Lookup(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("schema: type %q is not registered", name)
	}
	return t, nil
}

// Bindings returns the foreign-key binding group from the given child type
// to the given parent table. The result is nil when the child declares no
// column referencing that table.
func (r *Registry) Bindings(parentTable, childType string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refs[parentTable][childType]
}

// Types returns the registered type names in unspecified order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

// Register records the type in the process-wide registry.
func Register(t Type) (*Type, error) { return global.Register(t) }

// MustRegister records the type in the process-wide registry and panics
// on error.
func MustRegister(t Type) *Type { return global.MustRegister(t) }

// Lookup returns a type from the process-wide registry.
func Lookup(name string) (*Type, error) { return global.Lookup(name) }

// Bindings reads the process-wide foreign-key binding graph.
func Bindings(parentTable, childType string) []Binding {
	return global.Bindings(parentTable, childType)
}
