// Package schema holds the static description of entity types: their
// column classification (primary key, logical key, plain), their declared
// relationships, and the foreign-key bindings between tables.
//
// Types are registered once, at startup, and are read-only afterwards.
// The process-wide registry is safe for concurrent reads once populated.
package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/lkey/schema/field"
)

// An Edge declares a relationship from one entity type to another.
// Collection edges hold many children; scalar edges hold at most one.
// The arity is fixed here, at declaration time, never inferred from the
// shape of an instance.
type Edge struct {
	// Name of the relationship as exposed by the entity instance.
	Name string
	// Target is the registered name of the related type. Cascading
	// resolves foreign-key bindings from the runtime type of the children
	// it finds, so Target is informational for heterogeneous edges.
	Target string
	// Collection reports whether the edge holds many children.
	Collection bool
}

// A Binding ties a child column to the parent column it references.
// All bindings between one pair of tables travel together as a group.
type Binding struct {
	ChildColumn  string
	ParentColumn string
}

// A Type is the declared shape of an entity type. Name and Columns are
// required; Table is derived from Name when empty.
type Type struct {
	Name    string
	Table   string
	Columns []*field.Column
	Edges   []Edge

	keys    []*field.Column
	logical []*field.Column
	plain   []*field.Column
	byName  map[string]*field.Column
}

// finalize classifies the declared columns and derives the table name.
// A type with no primary-key column is a declaration mistake and fails.
func (t *Type) finalize() error {
	if t.Name == "" {
		return fmt.Errorf("schema: type with empty name")
	}
	if t.Table == "" {
		t.Table = inflect.Pluralize(inflect.Underscore(t.Name))
	}
	t.byName = make(map[string]*field.Column, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := t.byName[c.Name()]; ok {
			return fmt.Errorf("schema: type %q declares column %q twice", t.Name, c.Name())
		}
		t.byName[c.Name()] = c
		switch {
		case c.IsPrimaryKey():
			t.keys = append(t.keys, c)
		case c.IsLogicalKey():
			t.logical = append(t.logical, c)
		default:
			t.plain = append(t.plain, c)
		}
	}
	if len(t.keys) == 0 {
		return fmt.Errorf("schema: type %q has no primary key column", t.Name)
	}
	return nil
}

// Keys returns the primary-key columns, in declaration order.
func (t *Type) Keys() []*field.Column { return t.keys }

// Logical returns the logical-key columns, in declaration order.
// The slice is empty for types that declare no logical key.
func (t *Type) Logical() []*field.Column { return t.logical }

// Plain returns the non-key columns, in declaration order.
func (t *Type) Plain() []*field.Column { return t.plain }

// HasLogicalKey reports whether the type declares a logical key.
func (t *Type) HasLogicalKey() bool { return len(t.logical) > 0 }

// Column returns the declared column with the given name, or nil.
func (t *Type) Column(name string) *field.Column { return t.byName[name] }

// KeyNames returns the primary-key column names, in declaration order.
func (t *Type) KeyNames() []string { return names(t.keys) }

// LogicalNames returns the logical-key column names, in declaration order.
func (t *Type) LogicalNames() []string { return names(t.logical) }

// ColumnNames returns every declared column name: keys first, then
// logical keys, then plain columns.
func (t *Type) ColumnNames() []string {
	out := names(t.keys)
	out = append(out, names(t.logical)...)
	return append(out, names(t.plain)...)
}

func names(cols []*field.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}
