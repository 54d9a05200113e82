package lkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/syssam/lkey/dialect/sql"
	"github.com/syssam/lkey/schema"
)

// Key resolution: mapping logical-key tuples to primary-key tuples.
// Batch lookups issue exactly one row-value IN query regardless of batch
// size; round trips stay O(1) per batch.

// FindKey returns the primary-key tuple of the row whose logical-key
// columns equal the given values, or nil when no such row exists.
func (s *Session) FindKey(ctx context.Context, typeName string, logicalValues []any) ([]any, error) {
	found, err := s.FindKeys(ctx, typeName, [][]any{logicalValues})
	if err != nil {
		return nil, err
	}
	return found[0], nil
}

// FindKeys is the batched form of FindKey. The result is aligned with the
// input: position i holds the primary-key tuple for logicalValues[i], or
// nil when that tuple matched no row.
func (s *Session) FindKeys(ctx context.Context, typeName string, logicalValues [][]any) ([][]any, error) {
	if len(logicalValues) == 0 {
		return nil, nil
	}
	t, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if !t.HasLogicalKey() {
		return nil, NewNoLogicalKeyError(t.Name)
	}
	return s.findKeys(ctx, t, logicalValues)
}

func (s *Session) findKeys(ctx context.Context, t *schema.Type, logicalValues [][]any) ([][]any, error) {
	out := make([][]any, len(logicalValues))
	miss := make([]int, 0, len(logicalValues))
	for i, lv := range logicalValues {
		if s.cache != nil {
			if kv, err := s.cacheGet(ctx, t, lv); err == nil && kv != nil {
				out[i] = kv
				continue
			}
		}
		miss = append(miss, i)
	}
	if len(miss) == 0 {
		return out, nil
	}
	tuples := make([][]any, len(miss))
	for i, idx := range miss {
		tuples[i] = logicalValues[idx]
	}
	nkeys := len(t.Keys())
	cols := append(t.KeyNames(), t.LogicalNames()...)
	q := s.builder().
		Select(cols...).
		From(t.Table).
		Where(sql.CompositeIn(t.LogicalNames(), tuples))
	rows, err := s.queryTuples(ctx, t, "find-keys", q, len(cols))
	if err != nil {
		return nil, err
	}
	byLogical := make(map[string][]any, len(rows))
	for _, row := range rows {
		byLogical[tupleKey(row[nkeys:])] = row[:nkeys]
	}
	for _, idx := range miss {
		kv, ok := byLogical[tupleKey(logicalValues[idx])]
		if !ok {
			continue
		}
		out[idx] = kv
		if s.cache != nil {
			s.cacheSet(ctx, t, logicalValues[idx], kv)
		}
	}
	return out, nil
}

// AttachKey resolves the entity's primary key from its logical-key values
// and writes it onto the entity in place. The returned bool reports
// whether a key was found and attached; false means the logical key
// matched no stored row and is not an error.
//
// Attaching onto an entity that already holds primary-key values is an
// invariant violation unless AllowOverwrite is given.
func (s *Session) AttachKey(ctx context.Context, e Entity, opts ...AttachOption) (bool, error) {
	attached, err := s.AttachKeys(ctx, []Entity{e}, opts...)
	if err != nil {
		return false, err
	}
	return attached[0], nil
}

// AttachKeys is the batched form of AttachKey, resolving every entity's
// key with a single query. The result is aligned with the input.
func (s *Session) AttachKeys(ctx context.Context, entities []Entity, opts ...AttachOption) ([]bool, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	cfg := newAttachConfig(opts)
	t, err := s.registry.Lookup(entities[0].SchemaType())
	if err != nil {
		return nil, err
	}
	if !t.HasLogicalKey() {
		return nil, NewNoLogicalKeyError(t.Name)
	}
	tuples := make([][]any, len(entities))
	for i, e := range entities {
		if !cfg.allowOverwrite {
			if kv := keyValues(t, e); anyKeySet(kv) {
				return nil, NewAlreadyKeyedError(t.Name, kv)
			}
		}
		tuples[i] = logicalValues(t, e)
	}
	found, err := s.findKeys(ctx, t, tuples)
	if err != nil {
		return nil, err
	}
	attached := make([]bool, len(entities))
	for i, kv := range found {
		if kv == nil {
			continue
		}
		if err := setKeys(t, entities[i], kv); err != nil {
			return nil, err
		}
		attached[i] = true
	}
	return attached, nil
}

// setKeys writes a resolved primary-key tuple onto the entity.
func setKeys(t *schema.Type, e Entity, keys []any) error {
	for i, c := range t.Keys() {
		if err := e.SetValue(c.Name(), keys[i]); err != nil {
			return fmt.Errorf("lkey: attaching key %q to %s: %w", c.Name(), t.Name, err)
		}
	}
	return nil
}

func (s *Session) cacheKey(t *schema.Type, logical []any) string {
	return t.Name + ":" + tupleKey(logical)
}

func (s *Session) cacheGet(ctx context.Context, t *schema.Type, logical []any) ([]any, error) {
	data, err := s.cache.Get(ctx, s.cacheKey(t, logical))
	if err != nil || data == nil {
		return nil, err
	}
	return decodeKeyTuple(data)
}

func (s *Session) cacheSet(ctx context.Context, t *schema.Type, logical, keys []any) {
	data, err := encodeKeyTuple(keys)
	if err != nil {
		return
	}
	// Cache writes are best effort; a failing cache never fails the call.
	_ = s.cache.Set(ctx, s.cacheKey(t, logical), data, s.cacheTTL)
}

// normalize maps a value to a canonical comparison form so tuples built
// from caller-supplied values compare equal to tuples scanned from the
// driver (which returns int64, float64, string, []byte, time.Time, bool).
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

// tupleKey renders a value tuple as a map key.
func tupleKey(vals []any) string {
	var sb strings.Builder
	for _, v := range vals {
		fmt.Fprintf(&sb, "%v\x1f", normalize(v))
	}
	return sb.String()
}
