package lkey

import (
	"context"
	"fmt"

	"github.com/syssam/lkey/schema"
)

// insertPolicy selects how a batch decides whether a row already exists.
// It is passed down the cascade recursion so children are persisted with
// the same semantics as their parents.
type insertPolicy int

const (
	policyIgnoreByKey insertPolicy = iota
	policyIgnoreByLogicalKey
	policyUpsert
)

func (p insertPolicy) String() string {
	switch p {
	case policyIgnoreByKey:
		return "insert-ignore"
	case policyIgnoreByLogicalKey:
		return "linsert-ignore"
	case policyUpsert:
		return "linsert-update"
	default:
		return fmt.Sprintf("insertPolicy(%d)", int(p))
	}
}

// cascade resubmits the entities' relationship children with the same
// policy, after copying the parents' freshly resolved key values into the
// children's bound foreign-key columns. Each relationship target type is
// processed at most once per top-level call: the guard both avoids double
// work when several parent types reach the same child type and bounds
// recursion on cyclic relationship declarations.
func (s *Session) cascade(ctx context.Context, p insertPolicy, t *schema.Type, entities []Entity, seen map[string]struct{}, cfg callConfig) error {
	for _, edge := range t.Edges {
		if _, ok := seen[edge.Target]; ok {
			continue
		}
		seen[edge.Target] = struct{}{}
		groups, order, err := s.collectChildren(t, edge, entities)
		if err != nil {
			return err
		}
		for _, name := range order {
			if name != edge.Target {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
			}
			if err := s.insertBatch(ctx, p, groups[name], seen, cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectChildren gathers the set children under one relationship across
// the whole parent batch and writes each parent's bound column values
// onto its children. Children are grouped by their runtime type so each
// group forms a valid same-type batch; a child type with no declared
// foreign key into the parent's table is unsupported and rejected rather
// than persisted with unset references.
func (s *Session) collectChildren(parent *schema.Type, edge schema.Edge, entities []Entity) (map[string][]Entity, []string, error) {
	groups := make(map[string][]Entity)
	var order []string
	for _, e := range entities {
		h, ok := e.(EdgeHolder)
		if !ok {
			continue
		}
		for _, child := range h.Edge(edge.Name) {
			if child == nil {
				continue
			}
			name := child.SchemaType()
			bindings := s.registry.Bindings(parent.Table, name)
			if len(bindings) == 0 {
				return nil, nil, fmt.Errorf("lkey: %s.%s: child type %s declares no foreign key into table %q", parent.Name, edge.Name, name, parent.Table)
			}
			for _, b := range bindings {
				if err := child.SetValue(b.ChildColumn, e.Value(b.ParentColumn)); err != nil {
					return nil, nil, fmt.Errorf("lkey: propagating %s.%s to %s.%s: %w", parent.Name, b.ParentColumn, name, b.ChildColumn, err)
				}
			}
			if _, ok := groups[name]; !ok {
				order = append(order, name)
			}
			groups[name] = append(groups[name], child)
		}
	}
	return groups, order, nil
}
