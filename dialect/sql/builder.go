package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/lkey/dialect"
)

// Querier is the interface implemented by all statement builders.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base type shared by all statement builders. It holds the
// accumulated SQL, the bound arguments and the dialect used for rendering
// identifiers and placeholders.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// Dialect returns a builder factory configured for the given dialect.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{name}
}

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Select returns a Selector for the given columns.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.dialect = d.dialect
	return s
}

// Insert returns an Inserter for the given table.
func (d *DialectBuilder) Insert(table string) *Inserter {
	i := Insert(table)
	i.dialect = d.dialect
	return i
}

// Update returns an Updater for the given table.
func (d *DialectBuilder) Update(table string) *Updater {
	u := Update(table)
	u.dialect = d.dialect
	return u
}

func (b *Builder) quote(ident string) string {
	switch {
	case b.dialect == dialect.MySQL:
		return "`" + ident + "`"
	default:
		return `"` + ident + `"`
	}
}

func (b *Builder) writeIdent(ident string) {
	b.sb.WriteString(b.quote(ident))
}

func (b *Builder) writeIdents(idents []string) {
	for i, c := range idents {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.writeIdent(c)
	}
}

// arg appends an argument and writes its placeholder.
func (b *Builder) arg(v any) {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
}

func (b *Builder) args2(vs []any) {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.arg(v)
	}
}

// P is a predicate over a statement's WHERE clause.
type P func(*Builder)

// EQ returns a column = value predicate.
func EQ(col string, v any) P {
	return func(b *Builder) {
		b.writeIdent(col)
		b.sb.WriteString(" = ")
		b.arg(v)
	}
}

// IsNull returns a column IS NULL predicate.
func IsNull(col string) P {
	return func(b *Builder) {
		b.writeIdent(col)
		b.sb.WriteString(" IS NULL")
	}
}

// In returns a column IN (...) predicate. An empty value list renders a
// FALSE predicate, matching no rows.
func In(col string, vs ...any) P {
	return func(b *Builder) {
		if len(vs) == 0 {
			b.sb.WriteString("FALSE")
			return
		}
		b.writeIdent(col)
		b.sb.WriteString(" IN (")
		b.args2(vs)
		b.sb.WriteByte(')')
	}
}

// CompositeIn returns a row-value (col1, col2, ...) IN ((...), (...))
// predicate. With a single column it degenerates to a plain IN, which every
// dialect accepts; the row-value form requires MySQL, PostgreSQL, or
// SQLite >= 3.15.
func CompositeIn(cols []string, tuples [][]any) P {
	if len(cols) == 1 {
		vs := make([]any, len(tuples))
		for i, t := range tuples {
			vs[i] = t[0]
		}
		return In(cols[0], vs...)
	}
	return func(b *Builder) {
		if len(tuples) == 0 {
			b.sb.WriteString("FALSE")
			return
		}
		b.sb.WriteByte('(')
		b.writeIdents(cols)
		b.sb.WriteString(") IN (")
		for i, t := range tuples {
			if i > 0 {
				b.sb.WriteString(", ")
			}
			b.sb.WriteByte('(')
			b.args2(t)
			b.sb.WriteByte(')')
		}
		b.sb.WriteByte(')')
	}
}

// And groups the given predicates with AND.
func And(ps ...P) P {
	return func(b *Builder) {
		for i, p := range ps {
			if i > 0 {
				b.sb.WriteString(" AND ")
			}
			p(b)
		}
	}
}

// Selector builds a SELECT statement.
type Selector struct {
	Builder
	columns []string
	count   bool
	from    string
	where   []P
	limit   int
}

// Select returns a Selector for the given columns.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// Count configures the selector to count rows instead of selecting columns.
func (s *Selector) Count() *Selector {
	s.count = true
	return s
}

// From sets the source table.
func (s *Selector) From(table string) *Selector {
	s.from = table
	return s
}

// Where appends a predicate. Multiple predicates are ANDed.
func (s *Selector) Where(p P) *Selector {
	s.where = append(s.where, p)
	return s
}

// Limit adds a LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	return s
}

// Query returns the SELECT statement and its arguments.
func (s *Selector) Query() (string, []any) {
	s.sb.WriteString("SELECT ")
	switch {
	case s.count:
		s.sb.WriteString("COUNT(*)")
	case len(s.columns) == 0:
		s.sb.WriteByte('*')
	default:
		s.writeIdents(s.columns)
	}
	s.sb.WriteString(" FROM ")
	s.writeIdent(s.from)
	if len(s.where) > 0 {
		s.sb.WriteString(" WHERE ")
		And(s.where...)(&s.Builder)
	}
	if s.limit > 0 {
		s.sb.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return s.sb.String(), s.args
}

// Inserter builds an INSERT statement, optionally with a RETURNING clause
// or a dialect-native upsert clause.
type Inserter struct {
	Builder
	table     string
	columns   []string
	values    [][]any
	returning []string
	conflict  *conflict
}

type conflict struct {
	targets []string // conflict target columns (ignored on mysql)
	updates []string // columns synchronized from the proposed row
}

// Insert returns an Inserter for the given table.
func Insert(table string) *Inserter {
	return &Inserter{table: table}
}

// Columns sets the insert columns.
func (i *Inserter) Columns(columns ...string) *Inserter {
	i.columns = columns
	return i
}

// Values appends one row of values. Call repeatedly for multi-row inserts.
func (i *Inserter) Values(vs ...any) *Inserter {
	i.values = append(i.values, vs)
	return i
}

// Returning adds a RETURNING clause. Supported on postgres and sqlite.
func (i *Inserter) Returning(columns ...string) *Inserter {
	i.returning = columns
	return i
}

// OnConflictUpdate turns the insert into a native upsert: on a conflict over
// the target columns, the update columns are synchronized to the proposed
// row's values. MySQL ignores the targets and keys on any unique index.
func (i *Inserter) OnConflictUpdate(targets, updates []string) *Inserter {
	i.conflict = &conflict{targets: targets, updates: updates}
	return i
}

// Query returns the INSERT statement and its arguments.
func (i *Inserter) Query() (string, []any) {
	i.sb.WriteString("INSERT INTO ")
	i.writeIdent(i.table)
	i.sb.WriteString(" (")
	i.writeIdents(i.columns)
	i.sb.WriteString(") VALUES ")
	for r, row := range i.values {
		if r > 0 {
			i.sb.WriteString(", ")
		}
		i.sb.WriteByte('(')
		i.args2(row)
		i.sb.WriteByte(')')
	}
	if i.conflict != nil {
		i.writeConflict()
	}
	if len(i.returning) > 0 && i.dialect != dialect.MySQL {
		i.sb.WriteString(" RETURNING ")
		i.writeIdents(i.returning)
	}
	return i.sb.String(), i.args
}

func (i *Inserter) writeConflict() {
	if i.dialect == dialect.MySQL {
		i.sb.WriteString(" ON DUPLICATE KEY UPDATE ")
		for n, c := range i.conflict.updates {
			if n > 0 {
				i.sb.WriteString(", ")
			}
			i.writeIdent(c)
			i.sb.WriteString(" = VALUES(")
			i.writeIdent(c)
			i.sb.WriteByte(')')
		}
		return
	}
	i.sb.WriteString(" ON CONFLICT (")
	i.writeIdents(i.conflict.targets)
	i.sb.WriteString(") DO UPDATE SET ")
	for n, c := range i.conflict.updates {
		if n > 0 {
			i.sb.WriteString(", ")
		}
		i.writeIdent(c)
		i.sb.WriteString(fmt.Sprintf(" = excluded.%s", i.quote(c)))
	}
}

// Updater builds an UPDATE statement.
type Updater struct {
	Builder
	table   string
	columns []string
	values  []any
	where   []P
}

// Update returns an Updater for the given table.
func Update(table string) *Updater {
	return &Updater{table: table}
}

// Set adds a column assignment.
func (u *Updater) Set(column string, v any) *Updater {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Where appends a predicate. Multiple predicates are ANDed.
func (u *Updater) Where(p P) *Updater {
	u.where = append(u.where, p)
	return u
}

// Query returns the UPDATE statement and its arguments.
func (u *Updater) Query() (string, []any) {
	u.sb.WriteString("UPDATE ")
	u.writeIdent(u.table)
	u.sb.WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			u.sb.WriteString(", ")
		}
		u.writeIdent(c)
		u.sb.WriteString(" = ")
		u.arg(u.values[i])
	}
	if len(u.where) > 0 {
		u.sb.WriteString(" WHERE ")
		And(u.where...)(&u.Builder)
	}
	return u.sb.String(), u.args
}
