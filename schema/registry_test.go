package schema_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lkey/schema"
	"github.com/syssam/lkey/schema/field"
)

func ownerType() schema.Type {
	return schema.Type{
		Name: "Owner",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("email").LogicalKey(),
		},
		Edges: []schema.Edge{{Name: "pets", Target: "Pet", Collection: true}},
	}
}

func petType() schema.Type {
	return schema.Type{
		Name: "Pet",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("name").LogicalKey(),
			field.Int64("owner_ref").ForeignKey("owners", "id"),
		},
	}
}

func TestRegisterFirstWins(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	first, err := r.Register(ownerType())
	require.NoError(t, err)

	// A second registration under the same name returns the original
	// descriptor, whatever the new declaration says.
	redeclared := ownerType()
	redeclared.Table = "other_table"
	second, err := r.Register(redeclared)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "owners", second.Table)
}

func TestLookup(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	r.MustRegister(ownerType())

	typ, err := r.Lookup("Owner")
	require.NoError(t, err)
	assert.Equal(t, "Owner", typ.Name)

	_, err = r.Lookup("Ghost")
	assert.ErrorContains(t, err, `"Ghost" is not registered`)
}

func TestBindings(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	r.MustRegister(ownerType())
	r.MustRegister(petType())

	bindings := r.Bindings("owners", "Pet")
	require.Len(t, bindings, 1)
	assert.Equal(t, "owner_ref", bindings[0].ChildColumn)
	assert.Equal(t, "id", bindings[0].ParentColumn)

	assert.Nil(t, r.Bindings("owners", "Ghost"))
	assert.Nil(t, r.Bindings("ghosts", "Pet"))
}

func TestSelfReferenceBinding(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	r.MustRegister(schema.Type{
		Name: "Node",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("label").LogicalKey(),
			field.Int64("parent_ref").ForeignKey("nodes", "id"),
		},
		Edges: []schema.Edge{{Name: "children", Target: "Node", Collection: true}},
	})
	bindings := r.Bindings("nodes", "Node")
	require.Len(t, bindings, 1)
	assert.Equal(t, "parent_ref", bindings[0].ChildColumn)
}

func TestConcurrentRegister(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	const n = 16
	results := make([]*schema.Type, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ, err := r.Register(ownerType())
			assert.NoError(t, err)
			results[i] = typ
		}(i)
	}
	wg.Wait()
	require.NotNil(t, results[0])
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestTypes(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	r.MustRegister(ownerType())
	r.MustRegister(petType())
	assert.ElementsMatch(t, []string{"Owner", "Pet"}, r.Types())
}

func TestMustRegisterPanics(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	assert.Panics(t, func() {
		r.MustRegister(schema.Type{Name: "Bad"})
	})
}
