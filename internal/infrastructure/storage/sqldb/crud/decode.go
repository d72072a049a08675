package crud

import (
	"encoding/json"

	"adminnext/internal/metadata"
)

// decodeRow converts raw driver values to the Go types of the table's columns.
// Columns unknown to the descriptor are passed through.
func decodeRow(table *metadata.Table, raw map[string]any) metadata.Row {
	row := make(metadata.Row, len(raw))
	for name, v := range raw {
		if col, ok := table.Column(name); ok {
			row[name] = decodeValue(col, v)
			continue
		}
		row[name] = v
	}
	return row
}

// decodeValue normalizes one value. Drivers differ: MySQL returns text as []byte,
// SQLite returns booleans as integers, pgx returns numeric and uuid as strings.
// Values that do not convert are kept as returned.
func decodeValue(col metadata.Column, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch col.Type {
	case metadata.TypeString, metadata.TypeEnum:
		return v
	case metadata.TypeJSON:
		if s, ok := v.(string); ok && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
		return v
	}

	if c, err := col.Coerce(v); err == nil && c != nil {
		return c
	}
	return v
}
