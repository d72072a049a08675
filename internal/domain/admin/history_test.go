package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/core/apperror"
	"adminnext/internal/infrastructure/storage/sqldb"
)

func TestService_Schema(t *testing.T) {
	f := newFixture(t)

	table, err := f.svc.Schema("products")
	require.NoError(t, err)
	assert.Equal(t, "Product", table.Name)
	assert.Equal(t, []string{"id", "title", "price", "user_id"}, table.ColumnNames())

	_, err = f.svc.Schema("Ghost")
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_History(t *testing.T) {
	audit, err := sqldb.NewAuditService(0)
	require.NoError(t, err)
	f := newFixture(t, WithAuditor(audit))
	ctx := context.Background()

	form, err := f.svc.UpdateView(ctx, f.session(t), "User", f.ann, map[string]any{"name": "Annie"})
	require.NoError(t, err)
	require.True(t, form.OK(), "errors: %v", form.Errors)

	entries, err := f.svc.History(ctx, f.session(t), "User", "1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sqldb.AuditActionUpdate, entries[0].Action)
	assert.JSONEq(t, `{"name":{"old":"Ann","new":"Annie"}}`, string(entries[0].Changes))

	entries, err = f.svc.History(ctx, f.session(t), "User", f.bob, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)

	_, err = f.svc.History(ctx, f.session(t), "User", 99, 0)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_HistoryWithoutAuditor(t *testing.T) {
	f := newFixture(t)

	entries, err := f.svc.History(context.Background(), f.session(t), "Product", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
