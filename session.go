package lkey

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/lkey/dialect"
	"github.com/syssam/lkey/dialect/sql"
	"github.com/syssam/lkey/schema"
	"github.com/syssam/lkey/schema/field"
)

// A Session composes the key resolver, the insert engine, and the
// relationship cascader over a single driver or transaction. It holds no
// mutable state of its own; one session may be shared by concurrent
// callers as long as the underlying connection allows it.
//
// Sessions never open transactions implicitly. All statements run on the
// connection the session was built on; WithCommit is only valid on a
// session obtained from Tx.
type Session struct {
	conn     dialect.ExecQuerier
	tx       dialect.Tx
	dialect  string
	registry *schema.Registry
	cache    KeyCache
	cacheTTL time.Duration
}

// NewSession returns a session over the given driver, bound to the
// process-wide schema registry unless WithRegistry overrides it.
func NewSession(drv dialect.Driver, opts ...SessionOption) *Session {
	s := &Session{
		conn:     drv,
		dialect:  drv.Dialect(),
		registry: schema.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tx starts a transaction and returns a session bound to it. The caller
// owns the transaction: Commit and Rollback are explicit, either directly
// or through the WithCommit call option.
func (s *Session) Tx(ctx context.Context) (*Session, error) {
	if s.tx != nil {
		return nil, ErrTxStarted
	}
	drv, ok := s.conn.(dialect.Driver)
	if !ok {
		return nil, ErrTxUnsupported
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return nil, err
	}
	ns := *s
	ns.conn = tx
	ns.tx = tx
	return &ns, nil
}

// Commit commits the session's transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	return s.tx.Commit()
}

// Rollback rolls back the session's transaction.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	return s.tx.Rollback()
}

func (s *Session) builder() *sql.DialectBuilder {
	return sql.Dialect(s.dialect)
}

// keyContext returns the key-column definitions attached to errors.
func keyContext(t *schema.Type) []string {
	return append(t.KeyNames(), t.LogicalNames()...)
}

// queryTuples executes a row-returning statement and scans every row into
// a value tuple of the given width.
func (s *Session) queryTuples(ctx context.Context, t *schema.Type, op string, q sql.Querier, width int) ([][]any, error) {
	stmt, args := q.Query()
	var rows sql.Rows
	if err := s.conn.Query(ctx, stmt, args, &rows); err != nil {
		return nil, &QueryError{Type: t.Name, Op: op, Columns: keyContext(t), Args: args, Err: err}
	}
	tuples, err := sql.ScanTuples(&rows, width)
	if err != nil {
		return nil, &QueryError{Type: t.Name, Op: op, Columns: keyContext(t), Args: args, Err: err}
	}
	return tuples, nil
}

// exec executes a statement, classifying constraint violations.
func (s *Session) exec(ctx context.Context, t *schema.Type, op string, q sql.Querier, res *sql.Result) error {
	stmt, args := q.Query()
	var v any
	if res != nil {
		v = res
	}
	if err := s.conn.Exec(ctx, stmt, args, v); err != nil {
		return s.mutationError(t, op, args, err)
	}
	return nil
}

func (s *Session) mutationError(t *schema.Type, op string, args []any, err error) error {
	if sql.IsConstraintError(err) {
		err = NewConstraintError(err.Error(), err)
	}
	return &MutationError{Type: t.Name, Op: op, Columns: keyContext(t), Args: args, Err: err}
}

// Count returns the number of stored rows for the given type.
func (s *Session) Count(ctx context.Context, typeName string) (int64, error) {
	t, err := s.registry.Lookup(typeName)
	if err != nil {
		return 0, err
	}
	q := s.builder().Select().Count().From(t.Table)
	rows, err := s.queryTuples(ctx, t, "count", q, 1)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("lkey: counting %s: empty result", t.Name)
	}
	n, ok := toInt64(rows[0][0])
	if !ok {
		return 0, fmt.Errorf("lkey: counting %s: unexpected count type %T", t.Name, rows[0][0])
	}
	return n, nil
}

// Exists returns the stored primary-key tuple matching the entity's
// logical-key values, or nil when the entity is not stored. The entity is
// not modified.
func (s *Session) Exists(ctx context.Context, e Entity) ([]any, error) {
	t, err := s.registry.Lookup(e.SchemaType())
	if err != nil {
		return nil, err
	}
	if !t.HasLogicalKey() {
		return nil, NewNoLogicalKeyError(t.Name)
	}
	found, err := s.findKeys(ctx, t, [][]any{logicalValues(t, e)})
	if err != nil {
		return nil, err
	}
	return found[0], nil
}

// LGet populates the entity from the stored row matching its logical-key
// values. It reports whether a row was found; a miss is not an error.
func (s *Session) LGet(ctx context.Context, e Entity) (bool, error) {
	t, err := s.registry.Lookup(e.SchemaType())
	if err != nil {
		return false, err
	}
	if !t.HasLogicalKey() {
		return false, NewNoLogicalKeyError(t.Name)
	}
	cols := t.ColumnNames()
	q := s.builder().
		Select(cols...).
		From(t.Table).
		Where(sql.CompositeIn(t.LogicalNames(), [][]any{logicalValues(t, e)})).
		Limit(1)
	rows, err := s.queryTuples(ctx, t, "lget", q, len(cols))
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	return true, setColumns(t, e, cols, rows[0])
}

// Refresh re-reads the entity's persisted values by primary key and writes
// them back onto the entity.
func (s *Session) Refresh(ctx context.Context, e Entity) error {
	t, err := s.registry.Lookup(e.SchemaType())
	if err != nil {
		return err
	}
	kv := keyValues(t, e)
	if !fullyKeyed(kv) {
		return fmt.Errorf("lkey: refresh %s: entity has no primary key", t.Name)
	}
	cols := t.ColumnNames()
	q := s.builder().
		Select(cols...).
		From(t.Table).
		Where(sql.CompositeIn(t.KeyNames(), [][]any{kv})).
		Limit(1)
	rows, err := s.queryTuples(ctx, t, "refresh", q, len(cols))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("lkey: refresh %s %v: %w", t.Name, kv, ErrNotFound)
	}
	return setColumns(t, e, cols, rows[0])
}

// InsertIgnore inserts the entity unless a row with its primary-key
// values already exists. Existing rows are left untouched.
func (s *Session) InsertIgnore(ctx context.Context, e Entity, opts ...CallOption) error {
	return s.InsertIgnoreAll(ctx, []Entity{e}, opts...)
}

// InsertIgnoreAll is the batched form of InsertIgnore. Existence is
// checked with a single key-tuple IN query and absent rows are added in a
// single batched insert. The input order is preserved and entities in one
// batch must share a type.
func (s *Session) InsertIgnoreAll(ctx context.Context, entities []Entity, opts ...CallOption) error {
	return s.run(ctx, policyIgnoreByKey, entities, opts)
}

// LInsertIgnore inserts the entity unless a row with its logical-key
// values already exists. On a match the stored primary key is written
// onto the entity, making the in-memory object consistent with the
// stored row; the row itself is never modified.
func (s *Session) LInsertIgnore(ctx context.Context, e Entity, opts ...CallOption) error {
	return s.LInsertIgnoreAll(ctx, []Entity{e}, opts...)
}

// LInsertIgnoreAll is the batched form of LInsertIgnore.
func (s *Session) LInsertIgnoreAll(ctx context.Context, entities []Entity, opts ...CallOption) error {
	return s.run(ctx, policyIgnoreByLogicalKey, entities, opts)
}

// LInsertUpdate inserts the entity if absent, otherwise synchronizes the
// stored row's non-key columns to the entity's values. Absence is decided
// by the primary key when fully set, by the logical key otherwise.
func (s *Session) LInsertUpdate(ctx context.Context, e Entity, opts ...CallOption) error {
	return s.LInsertUpdateAll(ctx, []Entity{e}, opts...)
}

// LInsertUpdateAll is the batched form of LInsertUpdate.
func (s *Session) LInsertUpdateAll(ctx context.Context, entities []Entity, opts ...CallOption) error {
	return s.run(ctx, policyUpsert, entities, opts)
}

// run is the shared entry of all insert operations: it validates the
// commit precondition, seeds the visited-type set, dispatches the batch,
// and applies the commit side effect after everything, cascades included,
// has completed.
func (s *Session) run(ctx context.Context, p insertPolicy, entities []Entity, opts []CallOption) error {
	if len(entities) == 0 {
		return nil
	}
	cfg := newCallConfig(opts)
	if cfg.commit && s.tx == nil {
		return ErrNoTransaction
	}
	seen := make(map[string]struct{})
	if err := s.insertBatch(ctx, p, entities, seen, cfg); err != nil {
		return err
	}
	if cfg.commit {
		return s.tx.Commit()
	}
	return nil
}

// insertBatch runs one policy over one same-type batch and then cascades
// into declared relationships.
func (s *Session) insertBatch(ctx context.Context, p insertPolicy, entities []Entity, seen map[string]struct{}, cfg callConfig) error {
	if len(entities) == 0 {
		return nil
	}
	t, err := s.registry.Lookup(entities[0].SchemaType())
	if err != nil {
		return err
	}
	switch p {
	case policyIgnoreByKey:
		err = s.insertIgnoreBatch(ctx, t, entities, cfg)
	case policyIgnoreByLogicalKey:
		err = s.linsertIgnoreBatch(ctx, t, entities, cfg)
	case policyUpsert:
		err = s.linsertUpdateBatch(ctx, t, entities, cfg)
	}
	if err != nil {
		return err
	}
	if cfg.noCascade || len(t.Edges) == 0 {
		return nil
	}
	return s.cascade(ctx, p, t, entities, seen, cfg)
}

// insertIgnoreBatch implements existence-by-primary-key: one IN query
// over the batch's key tuples, then one batched insert of the absent
// entities. Matched entities are left untouched.
func (s *Session) insertIgnoreBatch(ctx context.Context, t *schema.Type, entities []Entity, cfg callConfig) error {
	tuples := make([][]any, len(entities))
	var keyed [][]any
	for i, e := range entities {
		tuples[i] = keyValues(t, e)
		if fullyKeyed(tuples[i]) {
			keyed = append(keyed, tuples[i])
		}
	}
	exists := make(map[string]struct{})
	if len(keyed) > 0 {
		q := s.builder().
			Select(t.KeyNames()...).
			From(t.Table).
			Where(sql.CompositeIn(t.KeyNames(), keyed))
		rows, err := s.queryTuples(ctx, t, "insert-ignore", q, len(t.Keys()))
		if err != nil {
			return err
		}
		for _, row := range rows {
			exists[tupleKey(row)] = struct{}{}
		}
	}
	var missing []Entity
	for i, e := range entities {
		if fullyKeyed(tuples[i]) {
			k := tupleKey(tuples[i])
			if _, ok := exists[k]; ok {
				continue
			}
			// A duplicate key inside one batch inserts once.
			exists[k] = struct{}{}
		}
		missing = append(missing, e)
	}
	if len(missing) > 0 {
		if err := s.insertRows(ctx, t, missing); err != nil {
			return err
		}
	}
	if cfg.refresh {
		return s.refreshAll(ctx, missing)
	}
	return nil
}

// linsertIgnoreBatch implements existence-by-logical-key: resolve the
// whole batch with one query, backfill primary keys onto the matched
// entities, insert the rest.
func (s *Session) linsertIgnoreBatch(ctx context.Context, t *schema.Type, entities []Entity, cfg callConfig) error {
	if !t.HasLogicalKey() {
		return NewNoLogicalKeyError(t.Name)
	}
	tuples := make([][]any, len(entities))
	for i, e := range entities {
		tuples[i] = logicalValues(t, e)
	}
	found, err := s.findKeys(ctx, t, tuples)
	if err != nil {
		return err
	}
	var missing []Entity
	first := make(map[string]Entity)
	type dupPair struct{ dst, src Entity }
	var dups []dupPair
	for i, e := range entities {
		if found[i] != nil {
			if err := setKeys(t, e, found[i]); err != nil {
				return err
			}
			continue
		}
		lk := tupleKey(tuples[i])
		if f, ok := first[lk]; ok {
			// Same logical key twice in one batch: the first occurrence
			// inserts, later ones share its row.
			dups = append(dups, dupPair{dst: e, src: f})
			continue
		}
		first[lk] = e
		missing = append(missing, e)
	}
	if len(missing) > 0 {
		if err := s.insertRows(ctx, t, missing); err != nil {
			return err
		}
		if s.cache != nil {
			for _, e := range missing {
				if kv := keyValues(t, e); fullyKeyed(kv) {
					s.cacheSet(ctx, t, logicalValues(t, e), kv)
				}
			}
		}
	}
	for _, d := range dups {
		if err := setKeys(t, d.dst, keyValues(t, d.src)); err != nil {
			return err
		}
	}
	if cfg.refresh {
		return s.refreshAll(ctx, missing)
	}
	return nil
}

// linsertUpdateBatch implements upsert: entities whose primary key is
// fully set merge unconditionally; the rest attach a key through the
// logical key and merge on a hit or insert on a miss.
func (s *Session) linsertUpdateBatch(ctx context.Context, t *schema.Type, entities []Entity, cfg callConfig) error {
	if !t.HasLogicalKey() {
		return NewNoLogicalKeyError(t.Name)
	}
	var merge, unresolved []Entity
	for _, e := range entities {
		if fullyKeyed(keyValues(t, e)) {
			merge = append(merge, e)
		} else {
			unresolved = append(unresolved, e)
		}
	}
	var insert []Entity
	if len(unresolved) > 0 {
		tuples := make([][]any, len(unresolved))
		for i, e := range unresolved {
			tuples[i] = logicalValues(t, e)
		}
		found, err := s.findKeys(ctx, t, tuples)
		if err != nil {
			return err
		}
		for i, e := range unresolved {
			if found[i] != nil {
				if err := setKeys(t, e, found[i]); err != nil {
					return err
				}
				merge = append(merge, e)
			} else {
				insert = append(insert, e)
			}
		}
	}
	if len(insert) > 0 {
		if err := s.insertRows(ctx, t, insert); err != nil {
			return err
		}
		if s.cache != nil {
			for _, e := range insert {
				if kv := keyValues(t, e); fullyKeyed(kv) {
					s.cacheSet(ctx, t, logicalValues(t, e), kv)
				}
			}
		}
	}
	if len(merge) > 0 {
		if err := s.mergeRows(ctx, t, merge); err != nil {
			return err
		}
	}
	if cfg.refresh {
		return s.refreshAll(ctx, entities)
	}
	return nil
}

// insertRows adds the entities in batched inserts and backfills
// store-assigned keys. Entities that carry a caller-assigned value for a
// single-column auto primary key are inserted with it in a separate
// statement, so mixing them with unkeyed entities never rewrites the
// caller's keys.
func (s *Session) insertRows(ctx context.Context, t *schema.Type, entities []Entity) error {
	var auto *field.Column
	if keys := t.Keys(); len(keys) == 1 && keys[0].IsAuto() {
		auto = keys[0]
	}
	if auto == nil {
		return s.insertGroup(ctx, t, entities, nil)
	}
	var keyed, unkeyed []Entity
	for _, e := range entities {
		if e.Value(auto.Name()) != nil {
			keyed = append(keyed, e)
		} else {
			unkeyed = append(unkeyed, e)
		}
	}
	if len(keyed) > 0 {
		if err := s.insertGroup(ctx, t, keyed, nil); err != nil {
			return err
		}
	}
	if len(unkeyed) > 0 {
		return s.insertGroup(ctx, t, unkeyed, auto)
	}
	return nil
}

// insertGroup issues one INSERT for the group. A non-nil autoKey is
// omitted from the statement and backfilled from the store afterwards.
func (s *Session) insertGroup(ctx context.Context, t *schema.Type, entities []Entity, autoKey *field.Column) error {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if autoKey != nil && c.Name() == autoKey.Name() {
			continue
		}
		cols = append(cols, c.Name())
	}
	ins := s.builder().Insert(t.Table).Columns(cols...)
	for _, e := range entities {
		vals := make([]any, len(cols))
		for i, name := range cols {
			vals[i] = e.Value(name)
		}
		ins.Values(vals...)
	}
	if autoKey == nil {
		return s.exec(ctx, t, "insert", ins, nil)
	}
	if s.dialect == dialect.Postgres {
		// Postgres reports generated keys through RETURNING, in input order.
		ins.Returning(autoKey.Name())
		stmt, args := ins.Query()
		var rows sql.Rows
		if err := s.conn.Query(ctx, stmt, args, &rows); err != nil {
			return s.mutationError(t, "insert", args, err)
		}
		ids, err := sql.ScanTuples(&rows, 1)
		if err != nil {
			return s.mutationError(t, "insert", args, err)
		}
		if len(ids) != len(entities) {
			return fmt.Errorf("lkey: insert %s: expected %d generated keys, got %d", t.Name, len(entities), len(ids))
		}
		for i, e := range entities {
			if err := e.SetValue(autoKey.Name(), ids[i][0]); err != nil {
				return fmt.Errorf("lkey: assigning key to %s: %w", t.Name, err)
			}
		}
		return nil
	}
	var res sql.Result
	if err := s.exec(ctx, t, "insert", ins, &res); err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		// Driver without LastInsertId support: keys stay unassigned.
		return nil
	}
	// MySQL reports the first generated key of a multi-row insert,
	// SQLite the last.
	first := id
	if s.dialect == dialect.SQLite {
		first = id - int64(len(entities)) + 1
	}
	for i, e := range entities {
		if err := e.SetValue(autoKey.Name(), first+int64(i)); err != nil {
			return fmt.Errorf("lkey: assigning key to %s: %w", t.Name, err)
		}
	}
	return nil
}

// mergeRows synchronizes the stored rows' non-key columns to the
// entities' values using the store's native upsert by primary key:
// absent rows are inserted, present ones updated.
func (s *Session) mergeRows(ctx context.Context, t *schema.Type, entities []Entity) error {
	cols := t.ColumnNames()
	updates := append(t.LogicalNames(), columnNames(t.Plain())...)
	ins := s.builder().
		Insert(t.Table).
		Columns(cols...).
		OnConflictUpdate(t.KeyNames(), updates)
	for _, e := range entities {
		vals := make([]any, len(cols))
		for i, name := range cols {
			vals[i] = e.Value(name)
		}
		ins.Values(vals...)
	}
	return s.exec(ctx, t, "upsert", ins, nil)
}

func (s *Session) refreshAll(ctx context.Context, entities []Entity) error {
	for _, e := range entities {
		if err := s.Refresh(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// setColumns writes one scanned row back onto the entity. NULL columns
// leave the in-memory value untouched.
func setColumns(t *schema.Type, e Entity, cols []string, row []any) error {
	for i, name := range cols {
		if row[i] == nil {
			continue
		}
		if err := e.SetValue(name, row[i]); err != nil {
			return fmt.Errorf("lkey: populating %s.%s: %w", t.Name, name, err)
		}
	}
	return nil
}

func columnNames(cols []*field.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}
