package sqldb

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/core/apperror"
)

func TestDialectByName(t *testing.T) {
	for name, want := range map[string]string{
		"postgres":   DialectPostgres,
		"PostgreSQL": DialectPostgres,
		"sqlite":     DialectSQLite,
		"mysql":      DialectMySQL,
	} {
		d, err := DialectByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}

	_, err := DialectByName("oracle")
	assert.True(t, apperror.IsConfiguration(err))
}

func TestLike(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		ci      bool
		text    bool
		wantSQL string
	}{
		{"postgres ilike", Postgres{}, true, true, "title ILIKE ?"},
		{"postgres like on number", Postgres{}, false, false, "CAST(title AS TEXT) LIKE ?"},
		{"sqlite", SQLite{}, true, true, `title LIKE ? ESCAPE '\'`},
		{"mysql ci", MySQL{}, true, true, "LOWER(title) LIKE LOWER(?)"},
		{"mysql cs", MySQL{}, false, true, "title LIKE BINARY ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.dialect.Like("title", "%a%", tt.ci, tt.text).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, []any{"%a%"}, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, EscapeLike(`50% off_now\`))
}

func TestPostgresTranslateError(t *testing.T) {
	err := Postgres{}.TranslateError(&pgconn.PgError{
		Code:   "23505",
		Detail: "Key (email)=(a@b.c) already exists.",
	}, "User")
	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"email": "already exists"}, fields)

	err = Postgres{}.TranslateError(&pgconn.PgError{
		Code:   "23503",
		Detail: `Key (user_id)=(9) is not present in table "users".`,
	}, "Product")
	fields, ok = apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"user_id": "related object does not exist"}, fields)

	err = Postgres{}.TranslateError(errors.New("connection reset"), "User")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)

	assert.NoError(t, Postgres{}.TranslateError(nil, "User"))
}

func TestMySQLTranslateError(t *testing.T) {
	err := MySQL{}.TranslateError(&mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'a@b.c' for key 'users.email'",
	}, "User")
	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"email": "already exists"}, fields)

	err = MySQL{}.TranslateError(&mysql.MySQLError{
		Number:  1048,
		Message: "Column 'name' cannot be null",
	}, "User")
	fields, _ = apperror.FieldErrors(err)
	assert.Equal(t, map[string]string{"name": "may not be null"}, fields)
}
