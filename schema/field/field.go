// Package field provides fluent builders for declaring entity columns.
//
// A column is classified at declaration time: it is primary-key material,
// logical-key material, or a plain column. Foreign keys are declared by
// naming the referenced table and column, which allows a reference to a
// type that has not been registered yet (including self-references).
//
//	field.Int64("id").PrimaryKey().Auto()
//	field.String("email").LogicalKey()
//	field.Int64("owner_ref").ForeignKey("owners", "id")
package field

// A Kind is the database-facing type of a column.
type Kind int

// Column kinds.
const (
	KindInt Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindTime
	KindUUID
	KindBytes
)

var kindNames = [...]string{
	KindInt:     "int",
	KindInt64:   "int64",
	KindFloat64: "float64",
	KindBool:    "bool",
	KindString:  "string",
	KindTime:    "time",
	KindUUID:    "uuid",
	KindBytes:   "bytes",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// A Reference names the table and column a foreign key points at.
type Reference struct {
	Table  string
	Column string
}

// A Column describes one declared column of an entity type.
type Column struct {
	name    string
	kind    Kind
	primary bool
	logical bool
	auto    bool
	ref     *Reference
}

// New returns a column of the given kind. Prefer the typed constructors.
func New(name string, kind Kind) *Column {
	return &Column{name: name, kind: kind}
}

// Int returns a new integer column.
func Int(name string) *Column { return New(name, KindInt) }

// Int64 returns a new 64-bit integer column.
func Int64(name string) *Column { return New(name, KindInt64) }

// Float64 returns a new float column.
func Float64(name string) *Column { return New(name, KindFloat64) }

// Bool returns a new boolean column.
func Bool(name string) *Column { return New(name, KindBool) }

// String returns a new string column.
func String(name string) *Column { return New(name, KindString) }

// Time returns a new timestamp column.
func Time(name string) *Column { return New(name, KindTime) }

// UUID returns a new UUID column. Values are google/uuid UUIDs stored in
// their textual form.
func UUID(name string) *Column { return New(name, KindUUID) }

// Bytes returns a new binary column.
func Bytes(name string) *Column { return New(name, KindBytes) }

// PrimaryKey marks the column as primary-key material.
func (c *Column) PrimaryKey() *Column {
	c.primary = true
	return c
}

// LogicalKey marks the column as part of the type's logical (business) key.
func (c *Column) LogicalKey() *Column {
	c.logical = true
	return c
}

// Auto marks the column as populated by the store on insert
// (auto-increment or equivalent).
func (c *Column) Auto() *Column {
	c.auto = true
	return c
}

// ForeignKey declares that the column references the given table and column.
func (c *Column) ForeignKey(table, column string) *Column {
	c.ref = &Reference{Table: table, Column: column}
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() Kind { return c.kind }

// IsPrimaryKey reports whether the column is primary-key material.
func (c *Column) IsPrimaryKey() bool { return c.primary }

// IsLogicalKey reports whether the column is logical-key material.
func (c *Column) IsLogicalKey() bool { return c.logical }

// IsAuto reports whether the store populates the column on insert.
func (c *Column) IsAuto() bool { return c.auto }

// Ref returns the foreign-key reference, or nil if the column is not a
// foreign key.
func (c *Column) Ref() *Reference { return c.ref }
