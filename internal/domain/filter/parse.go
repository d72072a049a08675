package filter

import (
	"fmt"
	"sort"
	"strings"

	"adminnext/internal/core/apperror"
)

// ParseKey splits "field__op" into its parts. A bare field means Exact.
// The operator is not validated here; field names may themselves contain "__".
func ParseKey(key string) (string, ComparisonType) {
	idx := strings.LastIndex(key, Separator)
	if idx <= 0 {
		return key, Exact
	}
	return key[:idx], ComparisonType(key[idx+len(Separator):])
}

// Parse converts a filter map into items ordered by key, so generated SQL is stable.
func Parse(filters map[string]any) ([]Item, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		field, op := ParseKey(key)
		if field == "" {
			return nil, apperror.NewInvalidFilter("empty filter field").WithDetail("filter", key)
		}
		if !op.Valid() {
			return nil, apperror.NewInvalidFilter(fmt.Sprintf("unknown filter operator %q", op)).
				WithDetail("filter", key)
		}
		items = append(items, Item{Field: field, Operator: op, Value: filters[key]})
	}
	return items, nil
}

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", apperror.NewInvalidFilter(fmt.Sprintf("invalid sort direction %q", s)).
		WithDetail("direction", s)
}

// ParseSort reads a comma-separated sort expression.
//
//	"name"          name ascending
//	"-id"           id descending
//	"name:desc,id"  explicit direction, then id ascending
func ParseSort(expr string) ([]Sort, error) {
	var out []Sort
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		s := Sort{Field: part, Direction: Asc}
		if field, dir, ok := strings.Cut(part, ":"); ok {
			d, err := ParseDirection(dir)
			if err != nil {
				return nil, err
			}
			s = Sort{Field: strings.TrimSpace(field), Direction: d}
		} else if strings.HasPrefix(part, "-") {
			s = Sort{Field: strings.TrimPrefix(part, "-"), Direction: Desc}
		} else if strings.HasPrefix(part, "+") {
			s.Field = strings.TrimPrefix(part, "+")
		}

		if s.Field == "" {
			return nil, apperror.NewInvalidFilter("empty sort field").WithDetail("sort", expr)
		}
		out = append(out, s)
	}
	return out, nil
}
