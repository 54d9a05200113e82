package lkey

import (
	"fmt"

	"github.com/syssam/lkey/schema"
	"github.com/syssam/lkey/schema/field"
)

// Hand-written test entities. Column access is explicit, mirroring what a
// code generator or a small amount of per-type boilerplate provides in
// real applications.

func toID(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("unsupported id value %T", v)
	}
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("unsupported text value %T", v)
	}
}

type owner struct {
	id    *int64
	email string
	name  string
	pets  []*pet
	// extraPets lets tests hang arbitrary entities off the pets edge.
	extraPets []Entity
}

func (o *owner) SchemaType() string { return "Owner" }

func (o *owner) Value(column string) any {
	switch column {
	case "id":
		if o.id == nil {
			return nil
		}
		return *o.id
	case "email":
		return o.email
	case "name":
		return o.name
	}
	return nil
}

func (o *owner) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		o.id = &n
	case "email":
		s, err := toText(v)
		if err != nil {
			return err
		}
		o.email = s
	case "name":
		s, err := toText(v)
		if err != nil {
			return err
		}
		o.name = s
	default:
		return fmt.Errorf("owner: unknown column %q", column)
	}
	return nil
}

func (o *owner) Edge(name string) []Entity {
	if name != "pets" {
		return nil
	}
	out := make([]Entity, 0, len(o.pets)+len(o.extraPets))
	for _, p := range o.pets {
		out = append(out, p)
	}
	return append(out, o.extraPets...)
}

type pet struct {
	id       *int64
	name     string
	ownerRef *int64
}

func (p *pet) SchemaType() string { return "Pet" }

func (p *pet) Value(column string) any {
	switch column {
	case "id":
		if p.id == nil {
			return nil
		}
		return *p.id
	case "name":
		return p.name
	case "owner_ref":
		if p.ownerRef == nil {
			return nil
		}
		return *p.ownerRef
	}
	return nil
}

func (p *pet) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		p.id = &n
	case "name":
		s, err := toText(v)
		if err != nil {
			return err
		}
		p.name = s
	case "owner_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		p.ownerRef = &n
	default:
		return fmt.Errorf("pet: unknown column %q", column)
	}
	return nil
}

// stray has no declared foreign key into the owners table, so cascading it
// through the pets edge must fail.
type stray struct {
	id   *int64
	name string
}

func (s *stray) SchemaType() string { return "Stray" }

func (s *stray) Value(column string) any {
	switch column {
	case "id":
		if s.id == nil {
			return nil
		}
		return *s.id
	case "name":
		return s.name
	}
	return nil
}

func (s *stray) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		s.id = &n
	case "name":
		t, err := toText(v)
		if err != nil {
			return err
		}
		s.name = t
	default:
		return fmt.Errorf("stray: unknown column %q", column)
	}
	return nil
}

// membership has a composite primary key and no logical key.
type membership struct {
	userRef  *int64
	groupRef *int64
	role     string
}

func (m *membership) SchemaType() string { return "Membership" }

func (m *membership) Value(column string) any {
	switch column {
	case "user_ref":
		if m.userRef == nil {
			return nil
		}
		return *m.userRef
	case "group_ref":
		if m.groupRef == nil {
			return nil
		}
		return *m.groupRef
	case "role":
		return m.role
	}
	return nil
}

func (m *membership) SetValue(column string, v any) error {
	switch column {
	case "user_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		m.userRef = &n
	case "group_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		m.groupRef = &n
	case "role":
		s, err := toText(v)
		if err != nil {
			return err
		}
		m.role = s
	default:
		return fmt.Errorf("membership: unknown column %q", column)
	}
	return nil
}

// node is a self-referential adjacency-list entity.
type node struct {
	id        *int64
	label     string
	parentRef *int64
	children  []*node
}

func (n *node) SchemaType() string { return "Node" }

func (n *node) Value(column string) any {
	switch column {
	case "id":
		if n.id == nil {
			return nil
		}
		return *n.id
	case "label":
		return n.label
	case "parent_ref":
		if n.parentRef == nil {
			return nil
		}
		return *n.parentRef
	}
	return nil
}

func (n *node) SetValue(column string, v any) error {
	switch column {
	case "id":
		x, err := toID(v)
		if err != nil {
			return err
		}
		n.id = &x
	case "label":
		s, err := toText(v)
		if err != nil {
			return err
		}
		n.label = s
	case "parent_ref":
		x, err := toID(v)
		if err != nil {
			return err
		}
		n.parentRef = &x
	default:
		return fmt.Errorf("node: unknown column %q", column)
	}
	return nil
}

func (n *node) Edge(name string) []Entity {
	if name != "children" {
		return nil
	}
	out := make([]Entity, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// author, post and comment form a diamond: authors reach comments both
// directly and through posts.
type author struct {
	id       *int64
	email    string
	posts    []*post
	comments []*comment
}

func (a *author) SchemaType() string { return "Author" }

func (a *author) Value(column string) any {
	switch column {
	case "id":
		if a.id == nil {
			return nil
		}
		return *a.id
	case "email":
		return a.email
	}
	return nil
}

func (a *author) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		a.id = &n
	case "email":
		s, err := toText(v)
		if err != nil {
			return err
		}
		a.email = s
	default:
		return fmt.Errorf("author: unknown column %q", column)
	}
	return nil
}

func (a *author) Edge(name string) []Entity {
	switch name {
	case "posts":
		out := make([]Entity, len(a.posts))
		for i, p := range a.posts {
			out[i] = p
		}
		return out
	case "comments":
		out := make([]Entity, len(a.comments))
		for i, c := range a.comments {
			out[i] = c
		}
		return out
	}
	return nil
}

type post struct {
	id        *int64
	slug      string
	authorRef *int64
	comments  []*comment
}

func (p *post) SchemaType() string { return "Post" }

func (p *post) Value(column string) any {
	switch column {
	case "id":
		if p.id == nil {
			return nil
		}
		return *p.id
	case "slug":
		return p.slug
	case "author_ref":
		if p.authorRef == nil {
			return nil
		}
		return *p.authorRef
	}
	return nil
}

func (p *post) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		p.id = &n
	case "slug":
		s, err := toText(v)
		if err != nil {
			return err
		}
		p.slug = s
	case "author_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		p.authorRef = &n
	default:
		return fmt.Errorf("post: unknown column %q", column)
	}
	return nil
}

func (p *post) Edge(name string) []Entity {
	if name != "comments" {
		return nil
	}
	out := make([]Entity, len(p.comments))
	for i, c := range p.comments {
		out[i] = c
	}
	return out
}

type comment struct {
	id        *int64
	body      string
	postRef   *int64
	authorRef *int64
}

func (c *comment) SchemaType() string { return "Comment" }

func (c *comment) Value(column string) any {
	switch column {
	case "id":
		if c.id == nil {
			return nil
		}
		return *c.id
	case "body":
		return c.body
	case "post_ref":
		if c.postRef == nil {
			return nil
		}
		return *c.postRef
	case "author_ref":
		if c.authorRef == nil {
			return nil
		}
		return *c.authorRef
	}
	return nil
}

func (c *comment) SetValue(column string, v any) error {
	switch column {
	case "id":
		n, err := toID(v)
		if err != nil {
			return err
		}
		c.id = &n
	case "body":
		s, err := toText(v)
		if err != nil {
			return err
		}
		c.body = s
	case "post_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		c.postRef = &n
	case "author_ref":
		n, err := toID(v)
		if err != nil {
			return err
		}
		c.authorRef = &n
	default:
		return fmt.Errorf("comment: unknown column %q", column)
	}
	return nil
}

// newTestRegistry declares every type the tests use on a fresh registry.
func newTestRegistry() *schema.Registry {
	r := schema.NewRegistry()
	r.MustRegister(schema.Type{
		Name: "Owner",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("email").LogicalKey(),
			field.String("name"),
		},
		Edges: []schema.Edge{{Name: "pets", Target: "Pet", Collection: true}},
	})
	r.MustRegister(schema.Type{
		Name: "Pet",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("name").LogicalKey(),
			field.Int64("owner_ref").ForeignKey("owners", "id"),
		},
	})
	r.MustRegister(schema.Type{
		Name: "Membership",
		Columns: []*field.Column{
			field.Int64("user_ref").PrimaryKey(),
			field.Int64("group_ref").PrimaryKey(),
			field.String("role"),
		},
	})
	r.MustRegister(schema.Type{
		Name: "Node",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("label").LogicalKey(),
			field.Int64("parent_ref").ForeignKey("nodes", "id"),
		},
		Edges: []schema.Edge{{Name: "children", Target: "Node", Collection: true}},
	})
	r.MustRegister(schema.Type{
		Name: "Author",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("email").LogicalKey(),
		},
		Edges: []schema.Edge{
			{Name: "posts", Target: "Post", Collection: true},
			{Name: "comments", Target: "Comment", Collection: true},
		},
	})
	r.MustRegister(schema.Type{
		Name: "Post",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("slug").LogicalKey(),
			field.Int64("author_ref").ForeignKey("authors", "id"),
		},
		Edges: []schema.Edge{{Name: "comments", Target: "Comment", Collection: true}},
	})
	r.MustRegister(schema.Type{
		Name: "Comment",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("body").LogicalKey(),
			field.Int64("post_ref").ForeignKey("posts", "id"),
			field.Int64("author_ref").ForeignKey("authors", "id"),
		},
	})
	return r
}

func ptr(v int64) *int64 { return &v }
