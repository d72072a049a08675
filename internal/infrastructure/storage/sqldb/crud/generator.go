// Package crud builds and runs SELECT/INSERT/UPDATE statements for one registered table.
//
// A Generator is bound to one table and one request session. Column and relation names
// coming from callers are checked against the table descriptor before any SQL is built,
// so only known identifiers ever reach a statement.
package crud

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"adminnext/internal/core/apperror"
	"adminnext/internal/domain/filter"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
	"adminnext/pkg/logger"
)

// FilterOptions bundles the parameters of PaginateFilter.
type FilterOptions struct {
	Filters      map[string]any // "field__op" -> value
	Prefetch     []string       // relation names to eager-load
	Search       string         // free-text term
	SearchFields []string       // columns matched against Search
	UseOr        bool           // OR the filter clauses instead of AND
	Sorting      []filter.Sort
	Page         int
	PageSize     int
}

// Generator provides CRUD operations for one table within one session.
type Generator struct {
	table    *metadata.Table
	sess     *sqldb.Session
	resolver metadata.Resolver
}

// New binds a generator to table and sess. resolver finds relation targets.
func New(table *metadata.Table, sess *sqldb.Session, resolver metadata.Resolver) *Generator {
	return &Generator{table: table, sess: sess, resolver: resolver}
}

// Table returns the bound table descriptor.
func (g *Generator) Table() *metadata.Table {
	return g.table
}

func (g *Generator) baseSelect() squirrel.SelectBuilder {
	return g.sess.Builder().
		Select(g.table.ColumnNames()...).
		From(g.table.TableName)
}

func (g *Generator) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithComponent("crud")
}

func (g *Generator) selectRows(ctx context.Context, q squirrel.SelectBuilder) ([]metadata.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	g.log(ctx).Debugw("select", "table", g.table.TableName, "sql", query)

	var raw []map[string]any
	if err := sqlscan.Select(ctx, g.sess.Reader(), &raw, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", g.table.TableName, err)
	}

	rows := make([]metadata.Row, len(raw))
	for i, r := range raw {
		rows[i] = decodeRow(g.table, r)
	}
	return rows, nil
}

// GetByID returns the row with the given primary key and loads the named relations.
// An id that cannot be converted to the key type is reported as not found.
func (g *Generator) GetByID(ctx context.Context, id any, prefetch ...string) (metadata.Row, error) {
	pk, _ := g.table.PrimaryKey()
	key, err := pk.Coerce(id)
	if err != nil || key == nil {
		return nil, apperror.NewNotFound(g.table.Name, id)
	}

	rows, err := g.selectRows(ctx, g.baseSelect().Where(squirrel.Eq{pk.Name: key}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NewNotFound(g.table.Name, id)
	}

	if err := g.prefetch(ctx, rows, prefetch); err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Create inserts a row and returns it as stored, generated columns included.
//
// Unknown fields, missing required fields and values that do not fit their column
// fail with a field validation error before the database is touched. The insert runs
// in the session transaction; committing is up to the caller.
func (g *Generator) Create(ctx context.Context, values metadata.Row) (metadata.Row, error) {
	row, errs := g.table.CoerceRow(values, true)
	if errs != nil {
		return nil, apperror.NewFieldValidation(errs)
	}
	if len(row) == 0 {
		return nil, apperror.NewFieldValidation(map[string]string{"__all__": "no values to insert"})
	}

	w, err := g.sess.Writer(ctx)
	if err != nil {
		return nil, err
	}

	dialect := g.sess.Dialect()
	q := g.sess.Builder().
		Insert(g.table.TableName).
		SetMap(row)

	if dialect.SupportsReturning() {
		q = q.Suffix("RETURNING " + strings.Join(g.table.ColumnNames(), ", "))
		query, args, err := q.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}

		var raw []map[string]any
		if err := sqlscan.Select(ctx, w, &raw, query, args...); err != nil {
			return nil, dialect.TranslateError(err, g.table.Name)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("insert %s: no row returned", g.table.TableName)
		}
		created := decodeRow(g.table, raw[0])
		g.log(ctx).Infow("row created", "table", g.table.TableName, "id", created[g.table.PrimaryKeyName()])
		return created, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	res, err := w.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, dialect.TranslateError(err, g.table.Name)
	}

	id, ok := row[g.table.PrimaryKeyName()]
	if !ok || id == nil {
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert %s: last insert id: %w", g.table.TableName, err)
		}
		id = lastID
	}

	// Refresh to pick up defaults.
	created, err := g.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", g.table.TableName, err)
	}
	g.log(ctx).Infow("row created", "table", g.table.TableName, "id", id)
	return created, nil
}

// Update applies values to every row matching where, in a single statement, and
// commits the session. where uses the filter syntax ("id__exact": 1).
// It returns the number of affected rows; zero matches is not an error.
// Empty values yield 0 without executing anything.
func (g *Generator) Update(ctx context.Context, where map[string]any, values metadata.Row) (int64, error) {
	row, errs := g.table.CoerceRow(values, false)
	if errs != nil {
		return 0, apperror.NewFieldValidation(errs)
	}
	if len(row) == 0 {
		return 0, nil
	}
	if len(where) == 0 {
		return 0, apperror.NewValidation("update without conditions")
	}

	items, err := filter.Parse(where)
	if err != nil {
		return 0, err
	}

	q := g.sess.Builder().
		Update(g.table.TableName).
		SetMap(row)
	for _, item := range items {
		cond, err := g.condition(item)
		if err != nil {
			return 0, err
		}
		q = q.Where(cond)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	w, err := g.sess.Writer(ctx)
	if err != nil {
		return 0, err
	}
	res, err := w.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, g.sess.Dialect().TranslateError(err, g.table.Name)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", g.table.TableName, err)
	}

	if err := g.sess.Commit(ctx); err != nil {
		return 0, err
	}
	g.log(ctx).Infow("rows updated", "table", g.table.TableName, "affected", affected)
	return affected, nil
}

// PaginateFilter returns one page of rows matching opts and the total match count.
func (g *Generator) PaginateFilter(ctx context.Context, opts FilterOptions) ([]metadata.Row, int64, error) {
	if opts.Page < 1 || opts.PageSize < 1 {
		return nil, 0, apperror.NewValidation("page and page size must be positive").
			WithDetail("page", opts.Page).
			WithDetail("page_size", opts.PageSize)
	}
	if opts.Page-1 > math.MaxInt64/opts.PageSize {
		return nil, 0, apperror.NewValidation("page is out of range").
			WithDetail("page", opts.Page).
			WithDetail("page_size", opts.PageSize)
	}

	orderBy, err := g.orderBy(opts.Sorting)
	if err != nil {
		return nil, 0, err
	}

	q, err := g.filteredSelect(opts)
	if err != nil {
		return nil, 0, err
	}

	// Count total (before pagination)
	countQ := g.sess.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := g.sess.Reader().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", g.table.TableName, err)
	}

	q = q.OrderBy(orderBy...).
		Limit(uint64(opts.PageSize)).
		Offset(uint64((opts.Page - 1) * opts.PageSize))

	rows, err := g.selectRows(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	if err := g.prefetch(ctx, rows, opts.Prefetch); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// All returns every row ordered by primary key.
func (g *Generator) All(ctx context.Context) ([]metadata.Row, error) {
	return g.selectRows(ctx, g.baseSelect().OrderBy(g.table.PrimaryKeyName()+" ASC"))
}

// Distinct returns the distinct non-null values of column in ascending order.
func (g *Generator) Distinct(ctx context.Context, column string) ([]any, error) {
	col, ok := g.table.Column(column)
	if !ok {
		return nil, apperror.NewNotFound(g.table.Name+" column", column)
	}

	q := g.sess.Builder().
		Select(col.Name).
		Distinct().
		From(g.table.TableName).
		Where(squirrel.NotEq{col.Name: nil}).
		OrderBy(col.Name + " ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct: %w", err)
	}

	var raw []map[string]any
	if err := sqlscan.Select(ctx, g.sess.Reader(), &raw, query, args...); err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", g.table.TableName, col.Name, err)
	}

	values := make([]any, 0, len(raw))
	for _, r := range raw {
		values = append(values, decodeValue(col, r[col.Name]))
	}
	return values, nil
}

// Options renders every row as a select option keyed by valueColumn
// (the primary key when empty).
func (g *Generator) Options(ctx context.Context, valueColumn string) ([]metadata.Option, error) {
	if valueColumn == "" {
		valueColumn = g.table.PrimaryKeyName()
	}
	rows, err := g.All(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]metadata.Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, metadata.Option{
			Value: row[valueColumn],
			Label: g.table.DisplayRow(row),
		})
	}
	return options, nil
}

// RelatedOptions returns option lists for every foreign key of the table, keyed by the
// many-to-one relation name, or by the column name when no relation is declared.
func (g *Generator) RelatedOptions(ctx context.Context) (map[string][]metadata.Option, error) {
	out := make(map[string][]metadata.Option)
	for _, col := range g.table.ForeignKeyColumns() {
		target, err := g.target(col.ForeignKey.Table)
		if err != nil {
			return nil, err
		}
		options, err := New(target, g.sess, g.resolver).Options(ctx, col.ForeignKey.Column)
		if err != nil {
			return nil, err
		}

		key := col.Name
		if rel, ok := g.table.RelationForColumn(col.Name); ok {
			key = rel.Name
		}
		out[key] = options
	}
	return out, nil
}

func (g *Generator) target(tableName string) (*metadata.Table, error) {
	if g.resolver != nil {
		if t, ok := g.resolver.ByTable(tableName); ok {
			return t, nil
		}
	}
	return nil, apperror.NewConfiguration(
		fmt.Sprintf("%s references table %q which is not registered", g.table.Name, tableName)).
		WithDetail("model", g.table.Name).
		WithDetail("target", tableName)
}
