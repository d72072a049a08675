package sqldb

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"adminnext/internal/core/apperror"
)

// Dialect names accepted by DialectByName.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
)

// Dialect hides the differences between supported databases.
type Dialect interface {
	Name() string
	DriverName() string
	Placeholder() squirrel.PlaceholderFormat

	// Like builds a pattern match. pattern is passed as an argument and may use
	// '\' to escape wildcards. text is false for columns that need a cast first.
	Like(column, pattern string, caseInsensitive, text bool) squirrel.Sqlizer

	// SupportsReturning reports whether INSERT ... RETURNING is available.
	SupportsReturning() bool

	// Pragmas are executed once after the pool is opened.
	Pragmas() []string

	// TranslateError converts driver errors into AppErrors. entity names the model.
	TranslateError(err error, entity string) error
}

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectPostgres, "postgresql", "pgx":
		return Postgres{}, nil
	case DialectSQLite, "sqlite3":
		return SQLite{}, nil
	case DialectMySQL:
		return MySQL{}, nil
	}
	return nil, apperror.NewConfiguration(fmt.Sprintf("unsupported database dialect %q", name))
}

// EscapeLike escapes LIKE wildcards in s with '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// --- PostgreSQL ---

// Postgres talks to PostgreSQL through pgx's database/sql driver.
type Postgres struct{}

func (Postgres) Name() string                            { return DialectPostgres }
func (Postgres) DriverName() string                      { return "pgx" }
func (Postgres) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }
func (Postgres) SupportsReturning() bool                 { return true }
func (Postgres) Pragmas() []string                       { return nil }

func (Postgres) Like(column, pattern string, caseInsensitive, text bool) squirrel.Sqlizer {
	if !text {
		column = "CAST(" + column + " AS TEXT)"
	}
	op := "LIKE"
	if caseInsensitive {
		op = "ILIKE"
	}
	return squirrel.Expr(column+" "+op+" ?", pattern)
}

var pgKeyDetail = regexp.MustCompile(`Key \(([^),]+)`)

func (Postgres) TranslateError(err error, entity string) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewDatabase(err)
	}

	field := pgErr.ColumnName
	if m := pgKeyDetail.FindStringSubmatch(pgErr.Detail); m != nil {
		field = strings.TrimSpace(m[1])
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return apperror.NewDuplicate(entity, fieldOrAll(field)).WithCause(err)
	case "23503": // foreign_key_violation
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(field): "related object does not exist",
		}).WithCause(err)
	case "23502": // not_null_violation
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(field): "may not be null",
		}).WithCause(err)
	case "23514": // check_violation
		return apperror.NewFieldValidation(map[string]string{
			"__all__": pgErr.Message,
		}).WithCause(err)
	}
	return apperror.NewDatabase(err)
}

// --- SQLite ---

// SQLite talks to modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string                            { return DialectSQLite }
func (SQLite) DriverName() string                      { return "sqlite" }
func (SQLite) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (SQLite) SupportsReturning() bool                 { return true }

func (SQLite) Pragmas() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
}

// Like uses LIKE for both cases; SQLite's LIKE ignores ASCII case.
func (SQLite) Like(column, pattern string, _, _ bool) squirrel.Sqlizer {
	return squirrel.Expr(column+` LIKE ? ESCAPE '\'`, pattern)
}

var sqliteConstraint = regexp.MustCompile(`constraint failed: [\w]+\.(\w+)`)

func (SQLite) TranslateError(err error, entity string) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return apperror.NewDatabase(err)
	}

	field := ""
	if m := sqliteConstraint.FindStringSubmatch(liteErr.Error()); m != nil {
		field = m[1]
	}

	// Extended result codes are not enabled on every connection; the base code
	// plus the message identify the constraint either way.
	if liteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return apperror.NewDatabase(err)
	}
	msg := liteErr.Error()
	switch {
	case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(msg, "UNIQUE constraint failed"):
		return apperror.NewDuplicate(entity, fieldOrAll(field)).WithCause(err)
	case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return apperror.NewFieldValidation(map[string]string{
			"__all__": "related object does not exist",
		}).WithCause(err)
	case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_NOTNULL,
		strings.Contains(msg, "NOT NULL constraint failed"):
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(field): "may not be null",
		}).WithCause(err)
	}
	return apperror.NewFieldValidation(map[string]string{
		"__all__": "constraint failed",
	}).WithCause(err)
}

// --- MySQL ---

// MySQL talks to go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string                            { return DialectMySQL }
func (MySQL) DriverName() string                      { return "mysql" }
func (MySQL) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (MySQL) SupportsReturning() bool                 { return false }
func (MySQL) Pragmas() []string                       { return nil }

func (MySQL) Like(column, pattern string, caseInsensitive, _ bool) squirrel.Sqlizer {
	if caseInsensitive {
		return squirrel.Expr("LOWER("+column+") LIKE LOWER(?)", pattern)
	}
	return squirrel.Expr(column+" LIKE BINARY ?", pattern)
}

var (
	mysqlDuplicateKey = regexp.MustCompile(`for key '(?:[^']*\.)?([^']+)'`)
	mysqlForeignKey   = regexp.MustCompile("FOREIGN KEY \\(`([^`]+)`\\)")
	mysqlColumn       = regexp.MustCompile(`(?:Column|Field) '([^']+)'`)
)

func (MySQL) TranslateError(err error, entity string) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return apperror.NewDatabase(err)
	}

	switch myErr.Number {
	case 1062: // ER_DUP_ENTRY
		return apperror.NewDuplicate(entity, fieldOrAll(submatch(mysqlDuplicateKey, myErr.Message))).WithCause(err)
	case 1452: // ER_NO_REFERENCED_ROW_2
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(submatch(mysqlForeignKey, myErr.Message)): "related object does not exist",
		}).WithCause(err)
	case 1048: // ER_BAD_NULL_ERROR
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(submatch(mysqlColumn, myErr.Message)): "may not be null",
		}).WithCause(err)
	case 1364: // ER_NO_DEFAULT_FOR_FIELD
		return apperror.NewFieldValidation(map[string]string{
			fieldOrAll(submatch(mysqlColumn, myErr.Message)): "field required",
		}).WithCause(err)
	}
	return apperror.NewDatabase(err)
}

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func fieldOrAll(field string) string {
	if field == "" {
		return "__all__"
	}
	return field
}
