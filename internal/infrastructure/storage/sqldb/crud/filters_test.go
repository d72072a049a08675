package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/core/apperror"
	"adminnext/internal/domain/filter"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

func productsTable() *metadata.Table {
	return &metadata.Table{
		Name:      "Product",
		TableName: "products",
		Columns: []metadata.Column{
			{Name: "id", Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "title", Type: metadata.TypeString, Required: true},
			{Name: "price", Type: metadata.TypeNumber},
			{Name: "user_id", Type: metadata.TypeInteger, Nullable: true},
		},
	}
}

func postgresGenerator() *Generator {
	sess := sqldb.New(nil, sqldb.Postgres{}).NewSession()
	return New(productsTable(), sess, nil)
}

func TestFilteredSelect_Operators(t *testing.T) {
	const base = "SELECT id, title, price, user_id FROM products"

	tests := []struct {
		name     string
		opts     FilterOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Greater",
			opts:     FilterOptions{Filters: map[string]any{"price__gt": 10}},
			wantSQL:  base + " WHERE price > $1",
			wantArgs: []any{float64(10)},
		},
		{
			name:     "BareFieldIsExact",
			opts:     FilterOptions{Filters: map[string]any{"title": "Lamp"}},
			wantSQL:  base + " WHERE title = $1",
			wantArgs: []any{"Lamp"},
		},
		{
			name:     "NotEqual",
			opts:     FilterOptions{Filters: map[string]any{"price__ne": "5"}},
			wantSQL:  base + " WHERE price <> $1",
			wantArgs: []any{float64(5)},
		},
		{
			name:     "InList",
			opts:     FilterOptions{Filters: map[string]any{"user_id__in": "1, 2"}},
			wantSQL:  base + " WHERE user_id IN ($1,$2)",
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:    "IsNull",
			opts:    FilterOptions{Filters: map[string]any{"user_id__isnull": "true"}},
			wantSQL: base + " WHERE user_id IS NULL",
		},
		{
			name:    "IsNotNull",
			opts:    FilterOptions{Filters: map[string]any{"user_id__isnull": false}},
			wantSQL: base + " WHERE user_id IS NOT NULL",
		},
		{
			name:     "IContains",
			opts:     FilterOptions{Filters: map[string]any{"title__icontains": "50%"}},
			wantSQL:  base + " WHERE title ILIKE $1",
			wantArgs: []any{`%50\%%`},
		},
		{
			name:     "StartsWithOnNumber",
			opts:     FilterOptions{Filters: map[string]any{"id__startswith": 1}},
			wantSQL:  base + " WHERE CAST(id AS TEXT) LIKE $1",
			wantArgs: []any{"1%"},
		},
		{
			name: "AndIsDefault",
			opts: FilterOptions{Filters: map[string]any{
				"price__lt":    5,
				"title__exact": "x",
			}},
			wantSQL:  base + " WHERE price < $1 AND title = $2",
			wantArgs: []any{float64(5), "x"},
		},
		{
			name: "UseOr",
			opts: FilterOptions{UseOr: true, Filters: map[string]any{
				"price__lt":    5,
				"title__exact": "x",
			}},
			wantSQL:  base + " WHERE (price < $1 OR title = $2)",
			wantArgs: []any{float64(5), "x"},
		},
		{
			name: "SearchIsAndedWithOrFilters",
			opts: FilterOptions{
				UseOr:        true,
				Filters:      map[string]any{"price__gte": 1, "price__lte": 9},
				Search:       "lamp",
				SearchFields: []string{"title", "price"},
			},
			wantSQL:  base + " WHERE (price >= $1 OR price <= $2) AND (title ILIKE $3 OR CAST(price AS TEXT) ILIKE $4)",
			wantArgs: []any{float64(1), float64(9), "%lamp%", "%lamp%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := postgresGenerator().filteredSelect(tt.opts)
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestFilteredSelect_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"UnknownOperator", FilterOptions{Filters: map[string]any{"price__between": 1}}},
		{"UnknownField", FilterOptions{Filters: map[string]any{"colour": "red"}}},
		{"BadValue", FilterOptions{Filters: map[string]any{"price__gt": "cheap"}}},
		{"BadIsNull", FilterOptions{Filters: map[string]any{"user_id__isnull": "maybe"}}},
		{"UnknownSearchField", FilterOptions{Search: "x", SearchFields: []string{"colour"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := postgresGenerator().filteredSelect(tt.opts)
			require.Error(t, err)
			assert.True(t, apperror.IsInvalidFilter(err), "got %v", err)
		})
	}
}

func TestOrderBy(t *testing.T) {
	g := postgresGenerator()

	got, err := g.orderBy(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id ASC"}, got)

	got, err = g.orderBy([]filter.Sort{
		{Field: "price", Direction: "DESC"},
		{Field: "title", Direction: filter.Asc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"price DESC", "title ASC"}, got)

	_, err = g.orderBy([]filter.Sort{{Field: "price", Direction: "upward"}})
	assert.True(t, apperror.IsInvalidFilter(err))

	_, err = g.orderBy([]filter.Sort{{Field: "price"}})
	assert.True(t, apperror.IsInvalidFilter(err), "missing direction is not defaulted")

	_, err = g.orderBy([]filter.Sort{{Field: "colour", Direction: filter.Asc}})
	assert.True(t, apperror.IsInvalidFilter(err))
}
