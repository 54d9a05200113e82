// Package lkey adds idempotent insert and upsert operations on top of a
// plain SQL connection. Whether a row already exists is decided either by
// its primary key or by a declared set of logical-key columns, and the
// operations cascade through declared parent/child relationships,
// propagating freshly resolved keys into child foreign-key columns.
//
// Entity types are described once, at startup, in the schema registry:
//
//	schema.MustRegister(schema.Type{
//		Name: "Owner",
//		Columns: []*field.Column{
//			field.Int64("id").PrimaryKey().Auto(),
//			field.String("email").LogicalKey(),
//			field.String("name"),
//		},
//		Edges: []schema.Edge{{Name: "pets", Target: "Pet", Collection: true}},
//	})
//
// Entities implement the Entity interface with explicit column accessors;
// no reflection is involved at any point. A Session composes the key
// resolver, the insert engine, and the relationship cascader over a
// dialect.Driver or a transaction obtained from one.
package lkey

import (
	"github.com/syssam/lkey/schema"
)

// Entity is a runtime instance of a registered schema type. Column access
// is explicit: Value returns the current value of a column (nil means
// unset), SetValue writes one, and is how resolved primary keys and parent
// foreign-key values are backfilled onto in-memory objects.
type Entity interface {
	// SchemaType returns the registered type name.
	SchemaType() string
	// Value returns the current value of the named column, nil if unset.
	Value(column string) any
	// SetValue assigns the named column. Implementations should return an
	// error for unknown columns or incompatible values.
	SetValue(column string, v any) error
}

// EdgeHolder is implemented by entities that carry relationship values.
// Edge returns the current children under the named relationship: zero or
// one entity for scalar edges, any number for collection edges. A nil or
// empty result means the relationship is unset and is skipped by
// cascading inserts.
type EdgeHolder interface {
	Edge(name string) []Entity
}

// Values returns the entity's declared column values as a map. Unset
// columns map to nil. Useful for logging and diffing entity state.
func Values(t *schema.Type, e Entity) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name()] = e.Value(c.Name())
	}
	return out
}

// keyValues returns the entity's primary-key tuple in declaration order.
func keyValues(t *schema.Type, e Entity) []any {
	vals := make([]any, len(t.Keys()))
	for i, c := range t.Keys() {
		vals[i] = e.Value(c.Name())
	}
	return vals
}

// logicalValues returns the entity's logical-key tuple in declaration order.
func logicalValues(t *schema.Type, e Entity) []any {
	vals := make([]any, len(t.Logical()))
	for i, c := range t.Logical() {
		vals[i] = e.Value(c.Name())
	}
	return vals
}

// fullyKeyed reports whether every slot of the tuple is set.
func fullyKeyed(vals []any) bool {
	for _, v := range vals {
		if v == nil {
			return false
		}
	}
	return len(vals) > 0
}

// anyKeySet reports whether at least one slot of the tuple is set.
func anyKeySet(vals []any) bool {
	for _, v := range vals {
		if v != nil {
			return true
		}
	}
	return false
}
