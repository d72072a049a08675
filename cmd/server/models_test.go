package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

func TestSetupAdminRegistry(t *testing.T) {
	reg, err := setupAdminRegistry()
	require.NoError(t, err)
	assert.True(t, reg.Frozen())

	m, ok := reg.Model("User")
	require.True(t, ok)
	users := m.Table
	assert.Equal(t, "users", users.TableName)
	assert.Equal(t, []string{"name", "email"}, reg.SearchFields("User"))

	col, ok := users.Column("profile_type")
	require.True(t, ok)
	assert.Equal(t, metadata.TypeEnum, col.Type)
	assert.Equal(t, []string{"ADMIN", "CUSTOMER", "VENDOR"}, col.EnumValues())

	m, ok = reg.Model("products")
	require.True(t, ok)
	fk, ok := m.Table.Column("user_id")
	require.True(t, ok)
	require.NotNil(t, fk.ForeignKey)
	assert.Equal(t, "users", fk.ForeignKey.Table)
	assert.Equal(t, "Owner", fk.Label)
}

func TestBootstrapAndSave(t *testing.T) {
	ctx := t.Context()
	db, err := sqldb.Open(ctx, sqldb.DefaultConfig(sqldb.DialectSQLite, ":memory:"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, bootstrap(ctx, db))
	require.NoError(t, bootstrap(ctx, db), "bootstrap must be repeatable")

	reg, err := setupAdminRegistry()
	require.NoError(t, err)
	svc := admin.NewService(reg)

	sess := db.NewSession()
	defer sess.Close()

	form, err := svc.SaveView(ctx, sess, "User", map[string]any{
		"name": "Ann", "email": "ann@example.com", "profile_type": "ADMIN",
	})
	require.NoError(t, err)
	require.True(t, form.OK(), "%v", form.Errors)

	form, err = svc.SaveView(ctx, sess, "User", map[string]any{
		"name": "Bob", "email": "bob@example.com", "profile_type": "ROOT",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"profile_type": "must be one of: ADMIN, CUSTOMER, VENDOR"}, form.Errors)

	form, err = svc.SaveView(ctx, sess, "Product", map[string]any{
		"title": "Lamp", "price": 10, "user_id": 1,
	})
	require.NoError(t, err)
	require.True(t, form.OK(), "%v", form.Errors)

	view, err := svc.DetailView(ctx, sess, "Product", "1")
	require.NoError(t, err)
	require.True(t, view.Found())
	assert.Equal(t, []admin.RelatedItem{{ID: int64(1), Label: "Ann (ann@example.com)"}}, view.RelatedData["user_id"])
}
