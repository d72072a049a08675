package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Coerce converts v into the Go value stored for the column.
// nil passes through; nullability is checked by CoerceRow.
func (c Column) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && s == "" && c.Type != TypeString && c.Type != TypeJSON {
		return nil, nil
	}

	switch c.Type {
	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		case int, int32, int64, float64, bool:
			return fmt.Sprint(x), nil
		}
		return nil, errors.New("must be a string")

	case TypeInteger:
		return toInt64(v)

	case TypeNumber:
		return toFloat64(v)

	case TypeDecimal:
		switch x := v.(type) {
		case decimal.Decimal:
			return x, nil
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(x))
			if err != nil {
				return nil, errors.New("must be a decimal number")
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(x), nil
		case json.Number:
			return decimal.NewFromString(x.String())
		}
		if n, err := toInt64(v); err == nil {
			return decimal.NewFromInt(n.(int64)), nil
		}
		return nil, errors.New("must be a decimal number")

	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "on", "yes":
				return true, nil
			case "off", "no":
				return false, nil
			}
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, errors.New("must be a boolean")
			}
			return b, nil
		}
		return nil, errors.New("must be a boolean")

	case TypeDate, TypeDateTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			for _, layout := range dateLayouts {
				if ts, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
					return ts, nil
				}
			}
		}
		return nil, errors.New("must be a date")

	case TypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			u, err := uuid.Parse(strings.TrimSpace(x))
			if err != nil {
				return nil, errors.New("must be a valid UUID")
			}
			return u, nil
		case []byte:
			u, err := uuid.ParseBytes(x)
			if err != nil {
				return nil, errors.New("must be a valid UUID")
			}
			return u, nil
		}
		return nil, errors.New("must be a valid UUID")

	case TypeEnum:
		s := fmt.Sprint(v)
		if !slices.Contains(c.EnumValues(), s) {
			return nil, fmt.Errorf("must be one of: %s", strings.Join(c.EnumValues(), ", "))
		}
		return s, nil

	case TypeJSON:
		switch x := v.(type) {
		case string:
			if !json.Valid([]byte(x)) {
				return nil, errors.New("must be valid JSON")
			}
			return x, nil
		case json.RawMessage:
			return string(x), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.New("must be valid JSON")
		}
		return string(b), nil
	}
	return v, nil
}

func toInt64(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return nil, errors.New("must be an integer")
		}
		return int64(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, errors.New("must be an integer")
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, errors.New("must be an integer")
		}
		return n, nil
	}
	return nil, errors.New("must be an integer")
}

func toFloat64(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, errors.New("must be a number")
		}
		return f, nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, errors.New("must be a number")
		}
		return f, nil
	}
	return nil, errors.New("must be a number")
}

// CoerceRow converts submitted values to column types.
//
// Unknown fields and type mismatches are reported per field. Read-only columns are
// dropped silently. With requireAll set, every required column must carry a value.
func (t *Table) CoerceRow(values Row, requireAll bool) (Row, map[string]string) {
	out := make(Row, len(values))
	errs := make(map[string]string)

	for name, raw := range values {
		col, ok := t.Column(name)
		if !ok {
			errs[name] = "unknown field"
			continue
		}
		if col.ReadOnly {
			continue
		}
		v, err := col.Coerce(raw)
		if err != nil {
			errs[name] = err.Error()
			continue
		}
		if v == nil && !col.Nullable && (col.Required || col.PrimaryKey) {
			errs[name] = "may not be null"
			continue
		}
		out[name] = v
	}

	if requireAll {
		for _, col := range t.Columns {
			if !col.Required || col.ReadOnly {
				continue
			}
			if _, failed := errs[col.Name]; failed {
				continue
			}
			if v, ok := out[col.Name]; !ok || v == nil {
				errs[col.Name] = "field required"
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
