package admin

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
	"adminnext/internal/testutil"
)

// newMockService wires a service to go-sqlmock; any statement not expected fails the test.
func newMockService(t *testing.T) (*Service, *sqldb.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewRegistry(nil)
	reg.MustRegister(metadata.MustInspect(testutil.User{}, "User", "users"),
		WithValidation(NewStructValidator[userSchema]()))
	reg.MustRegister(metadata.MustInspect(testutil.Product{}, "Product", "products"))
	reg.Freeze()

	return NewService(reg), sqldb.New(db, sqldb.SQLite{}), mock
}

func TestUpdateView_NotFoundIssuesNoCommit(t *testing.T) {
	svc, db, mock := newMockService(t)
	mock.ExpectQuery("SELECT id, name, email, profile_type FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "profile_type"}))

	sess := db.NewSession()
	form, err := svc.UpdateView(context.Background(), sess, "User", 7, map[string]any{"name": "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "Object not found"}, form.Errors)
	assert.False(t, sess.InTransaction())
	require.NoError(t, sess.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateView_EmptyPayloadIssuesNoStatement(t *testing.T) {
	svc, db, mock := newMockService(t)
	mock.ExpectQuery("SELECT id, name, email, profile_type FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "profile_type"}).
			AddRow(int64(7), "Ann", "ann@example.com", nil))

	sess := db.NewSession()
	form, err := svc.UpdateView(context.Background(), sess, "User", 7, nil)
	require.NoError(t, err)
	assert.True(t, form.OK())
	assert.Equal(t, "Ann", form.Row["name"])
	assert.False(t, sess.InTransaction())
	require.NoError(t, sess.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveView_InvalidPerformsNoInsert(t *testing.T) {
	svc, db, mock := newMockService(t)

	sess := db.NewSession()
	defer sess.Close()
	ctx := context.Background()

	form, err := svc.SaveView(ctx, sess, "User", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "field required"}, form.Errors)

	form, err = svc.SaveView(ctx, sess, "Product", map[string]any{"title": "Lamp", "colour": "red"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"colour":  "unknown field",
		"price":   "field required",
		"user_id": "field required",
	}, form.Errors)

	assert.False(t, sess.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveView_CommitsOnce(t *testing.T) {
	svc, db, mock := newMockService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price", "user_id"}).
			AddRow(int64(1), "Lamp", 9.5, int64(3)))
	mock.ExpectCommit()

	sess := db.NewSession()
	form, err := svc.SaveView(context.Background(), sess, "Product", map[string]any{
		"title": "Lamp", "price": 9.5, "user_id": 3,
	})
	require.NoError(t, err)
	require.True(t, form.OK(), "errors: %v", form.Errors)
	assert.Equal(t, metadata.Row{"id": int64(1), "title": "Lamp", "price": 9.5, "user_id": int64(3)}, form.Row)
	require.NoError(t, sess.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}
