package crud

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"adminnext/internal/core/apperror"
	"adminnext/internal/domain/filter"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// filteredSelect applies filters and search to the base select.
// Filters are ANDed (or ORed with UseOr); search is always ANDed with them.
func (g *Generator) filteredSelect(opts FilterOptions) (squirrel.SelectBuilder, error) {
	q := g.baseSelect()

	items, err := filter.Parse(opts.Filters)
	if err != nil {
		return q, err
	}

	conds := make([]squirrel.Sqlizer, 0, len(items))
	for _, item := range items {
		cond, err := g.condition(item)
		if err != nil {
			return q, err
		}
		conds = append(conds, cond)
	}

	switch {
	case len(conds) == 0:
	case opts.UseOr:
		q = q.Where(squirrel.Or(conds))
	default:
		for _, cond := range conds {
			q = q.Where(cond)
		}
	}

	search, err := g.searchCondition(opts.Search, opts.SearchFields)
	if err != nil {
		return q, err
	}
	if search != nil {
		q = q.Where(search)
	}
	return q, nil
}

func (g *Generator) searchCondition(term string, fields []string) (squirrel.Sqlizer, error) {
	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return nil, nil
	}

	pattern := "%" + sqldb.EscapeLike(term) + "%"
	dialect := g.sess.Dialect()

	or := make(squirrel.Or, 0, len(fields))
	for _, field := range fields {
		col, ok := g.table.Column(field)
		if !ok {
			return nil, apperror.NewInvalidFilter(fmt.Sprintf("unknown search field %q", field)).
				WithDetail("field", field)
		}
		or = append(or, dialect.Like(col.Name, pattern, true, col.IsText()))
	}
	return or, nil
}

// condition turns one filter item into a WHERE clause.
func (g *Generator) condition(item filter.Item) (squirrel.Sqlizer, error) {
	col, ok := g.table.Column(item.Field)
	if !ok {
		return nil, apperror.NewInvalidFilter(fmt.Sprintf("unknown filter field %q", item.Field)).
			WithDetail("field", item.Field)
	}

	op := item.Operator
	switch {
	case op == filter.IsNull:
		v, err := metadata.Column{Type: metadata.TypeBoolean}.Coerce(scalar(item.Value))
		if err != nil || v == nil {
			return nil, invalidValue(item, "must be true or false")
		}
		if v.(bool) {
			return squirrel.Eq{col.Name: nil}, nil
		}
		return squirrel.NotEq{col.Name: nil}, nil

	case op.IsList():
		values, err := coerceList(col, item.Value)
		if err != nil {
			return nil, invalidValue(item, err.Error())
		}
		if op == filter.NotInList {
			return squirrel.NotEq{col.Name: values}, nil
		}
		return squirrel.Eq{col.Name: values}, nil

	case op.IsPattern():
		term := sqldb.EscapeLike(fmt.Sprint(scalar(item.Value)))
		var pattern string
		switch op {
		case filter.IExact:
			pattern = term
		case filter.Contains, filter.IContains:
			pattern = "%" + term + "%"
		case filter.StartsWith, filter.IStartsWith:
			pattern = term + "%"
		case filter.EndsWith, filter.IEndsWith:
			pattern = "%" + term
		}
		ci := op == filter.IExact || op == filter.IContains || op == filter.IStartsWith || op == filter.IEndsWith
		return g.sess.Dialect().Like(col.Name, pattern, ci, col.IsText()), nil
	}

	v, err := col.Coerce(scalar(item.Value))
	if err != nil {
		return nil, invalidValue(item, err.Error())
	}

	switch op {
	case filter.Exact:
		return squirrel.Eq{col.Name: v}, nil
	case filter.NotEqual:
		return squirrel.NotEq{col.Name: v}, nil
	}

	if v == nil {
		return nil, invalidValue(item, "value required")
	}
	switch op {
	case filter.Greater:
		return squirrel.Gt{col.Name: v}, nil
	case filter.GreaterOrEq:
		return squirrel.GtOrEq{col.Name: v}, nil
	case filter.Less:
		return squirrel.Lt{col.Name: v}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{col.Name: v}, nil
	}
	return nil, apperror.NewInvalidFilter(fmt.Sprintf("unknown filter operator %q", op))
}

// orderBy validates sort terms; the primary key ascending is the default.
func (g *Generator) orderBy(sorting []filter.Sort) ([]string, error) {
	if len(sorting) == 0 {
		return []string{g.table.PrimaryKeyName() + " ASC"}, nil
	}

	out := make([]string, 0, len(sorting))
	for _, s := range sorting {
		col, ok := g.table.Column(s.Field)
		if !ok {
			return nil, apperror.NewInvalidFilter(fmt.Sprintf("unknown sort field %q", s.Field)).
				WithDetail("field", s.Field)
		}
		dir, err := filter.ParseDirection(string(s.Direction))
		if err != nil {
			return nil, err
		}
		out = append(out, col.Name+" "+strings.ToUpper(string(dir)))
	}
	return out, nil
}

// scalar picks a single value out of repeated query parameters.
func scalar(v any) any {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil
		}
		return x[0]
	case []any:
		if len(x) == 0 {
			return nil
		}
		return x[0]
	}
	return v
}

// coerceList accepts a slice or a comma-separated string.
func coerceList(col metadata.Column, v any) ([]any, error) {
	var raw []any
	switch x := v.(type) {
	case []any:
		raw = x
	case []string:
		for _, s := range x {
			for _, part := range strings.Split(s, ",") {
				raw = append(raw, strings.TrimSpace(part))
			}
		}
	case string:
		if strings.TrimSpace(x) != "" {
			for _, part := range strings.Split(x, ",") {
				raw = append(raw, strings.TrimSpace(part))
			}
		}
	default:
		raw = []any{v}
	}

	out := make([]any, 0, len(raw))
	for _, r := range raw {
		c, err := col.Coerce(r)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func invalidValue(item filter.Item, msg string) error {
	return apperror.NewInvalidFilter(fmt.Sprintf("invalid value for %s%s%s: %s",
		item.Field, filter.Separator, item.Operator, msg)).
		WithDetail("field", item.Field).
		WithDetail("value", item.Value)
}
