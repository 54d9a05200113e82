package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lkey/schema"
	"github.com/syssam/lkey/schema/field"
)

func TestTypeClassification(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	typ, err := r.Register(schema.Type{
		Name: "Owner",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey().Auto(),
			field.String("email").LogicalKey(),
			field.String("name"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "owners", typ.Table)
	assert.Equal(t, []string{"id"}, typ.KeyNames())
	assert.Equal(t, []string{"email"}, typ.LogicalNames())
	assert.Equal(t, []string{"id", "email", "name"}, typ.ColumnNames())
	assert.True(t, typ.HasLogicalKey())
	require.NotNil(t, typ.Column("email"))
	assert.Nil(t, typ.Column("missing"))
}

func TestTableDerivation(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	typ, err := r.Register(schema.Type{
		Name: "OrderItem",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey(),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_items", typ.Table)
}

func TestExplicitTable(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	typ, err := r.Register(schema.Type{
		Name:  "Owner",
		Table: "legacy_owner_tbl",
		Columns: []*field.Column{
			field.Int64("id").PrimaryKey(),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "legacy_owner_tbl", typ.Table)
}

func TestCompositeKeys(t *testing.T) {
	t.Parallel()
	r := schema.NewRegistry()
	typ, err := r.Register(schema.Type{
		Name: "Membership",
		Columns: []*field.Column{
			field.Int64("user_ref").PrimaryKey(),
			field.Int64("group_ref").PrimaryKey(),
			field.String("role"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_ref", "group_ref"}, typ.KeyNames())
	assert.False(t, typ.HasLogicalKey())
	assert.Len(t, typ.Plain(), 1)
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()
	t.Run("EmptyName", func(t *testing.T) {
		t.Parallel()
		r := schema.NewRegistry()
		_, err := r.Register(schema.Type{
			Columns: []*field.Column{field.Int64("id").PrimaryKey()},
		})
		assert.ErrorContains(t, err, "empty name")
	})
	t.Run("NoPrimaryKey", func(t *testing.T) {
		t.Parallel()
		r := schema.NewRegistry()
		_, err := r.Register(schema.Type{
			Name:    "Bad",
			Columns: []*field.Column{field.String("name").LogicalKey()},
		})
		assert.ErrorContains(t, err, "no primary key")
	})
	t.Run("DuplicateColumn", func(t *testing.T) {
		t.Parallel()
		r := schema.NewRegistry()
		_, err := r.Register(schema.Type{
			Name: "Bad",
			Columns: []*field.Column{
				field.Int64("id").PrimaryKey(),
				field.String("id"),
			},
		})
		assert.ErrorContains(t, err, `column "id" twice`)
	})
}
