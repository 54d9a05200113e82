package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/syssam/lkey/schema/field"
)

// YAML snapshot of a registry. Dump is the inspection format for "what is
// actually registered"; Load turns a snapshot back into declarations that
// can be fed to Register, e.g. in tests or fixtures.

type yamlDoc struct {
	Types []yamlType `yaml:"types"`
}

type yamlType struct {
	Name    string       `yaml:"name"`
	Table   string       `yaml:"table"`
	Columns []yamlColumn `yaml:"columns"`
	Edges   []yamlEdge   `yaml:"edges,omitempty"`
}

type yamlColumn struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	PrimaryKey bool     `yaml:"primary_key,omitempty"`
	LogicalKey bool     `yaml:"logical_key,omitempty"`
	Auto       bool     `yaml:"auto,omitempty"`
	ForeignKey *yamlRef `yaml:"foreign_key,omitempty"`
}

type yamlRef struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

type yamlEdge struct {
	Name       string `yaml:"name"`
	Target     string `yaml:"target"`
	Collection bool   `yaml:"collection,omitempty"`
}

// Dump returns a YAML snapshot of every type registered in r, ordered by
// type name.
func (r *Registry) Dump() ([]byte, error) {
	names := r.Types()
	sort.Strings(names)
	doc := yamlDoc{}
	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		yt := yamlType{Name: t.Name, Table: t.Table}
		for _, c := range t.Columns {
			yc := yamlColumn{
				Name:       c.Name(),
				Kind:       c.Kind().String(),
				PrimaryKey: c.IsPrimaryKey(),
				LogicalKey: c.IsLogicalKey(),
				Auto:       c.IsAuto(),
			}
			if ref := c.Ref(); ref != nil {
				yc.ForeignKey = &yamlRef{Table: ref.Table, Column: ref.Column}
			}
			yt.Columns = append(yt.Columns, yc)
		}
		for _, e := range t.Edges {
			yt.Edges = append(yt.Edges, yamlEdge{Name: e.Name, Target: e.Target, Collection: e.Collection})
		}
		doc.Types = append(doc.Types, yt)
	}
	return yaml.Marshal(doc)
}

var kindsByName = map[string]field.Kind{
	"int":     field.KindInt,
	"int64":   field.KindInt64,
	"float64": field.KindFloat64,
	"bool":    field.KindBool,
	"string":  field.KindString,
	"time":    field.KindTime,
	"uuid":    field.KindUUID,
	"bytes":   field.KindBytes,
}

// Load parses a YAML snapshot into type declarations. The returned types
// are not registered.
func Load(data []byte) ([]Type, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parsing snapshot: %w", err)
	}
	out := make([]Type, 0, len(doc.Types))
	for _, yt := range doc.Types {
		t := Type{Name: yt.Name, Table: yt.Table}
		for _, yc := range yt.Columns {
			kind, ok := kindsByName[yc.Kind]
			if !ok {
				return nil, fmt.Errorf("schema: type %q column %q has unknown kind %q", yt.Name, yc.Name, yc.Kind)
			}
			c := field.New(yc.Name, kind)
			if yc.PrimaryKey {
				c.PrimaryKey()
			}
			if yc.LogicalKey {
				c.LogicalKey()
			}
			if yc.Auto {
				c.Auto()
			}
			if yc.ForeignKey != nil {
				c.ForeignKey(yc.ForeignKey.Table, yc.ForeignKey.Column)
			}
			t.Columns = append(t.Columns, c)
		}
		for _, ye := range yt.Edges {
			t.Edges = append(t.Edges, Edge{Name: ye.Name, Target: ye.Target, Collection: ye.Collection})
		}
		out = append(out, t)
	}
	return out, nil
}
