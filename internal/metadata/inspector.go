package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Enumerated is implemented by named string types that list their allowed values.
//
//	type ProfileType string
//	func (ProfileType) EnumValues() []string { return []string{"ADMIN", "CUSTOMER"} }
type Enumerated interface {
	EnumValues() []string
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	rawJSONType    = reflect.TypeOf(json.RawMessage{})
	enumeratedType = reflect.TypeOf((*Enumerated)(nil)).Elem()
)

// Inspect builds a Table from a struct using its tags.
//
// Columns come from `db:"name"`. Options go in the `admin` tag, separated by ';':
//
//	pk                    primary key
//	required              must be present on create
//	readonly              generated by the database, ignored on write
//	fk=table[.column]     foreign key
//	enum=A|B|C            enumerated values
//	label=Text            display label
//	type=decimal          override the inferred type
//
// Struct or slice-of-struct fields tagged `admin:"relation=table;local=col"` (many-to-one)
// or `admin:"relation=table;remote=col"` (one-to-many) become relations.
func Inspect(entity any, name, tableName string) (*Table, error) {
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("inspect: %s is not a struct", t)
	}

	if name == "" {
		name = t.Name()
	}

	table := &Table{
		Name:      name,
		TableName: tableName,
		Label:     guessLabel(name),
	}

	if err := inspectStruct(t, table); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", name, err)
	}
	return table, nil
}

// MustInspect is Inspect for startup code; it panics on malformed tags.
func MustInspect(entity any, name, tableName string) *Table {
	table, err := Inspect(entity, name, tableName)
	if err != nil {
		panic(err)
	}
	return table
}

func inspectStruct(t reflect.Type, table *Table) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		// Handle embedded structs (flattening)
		if field.Anonymous {
			if err := inspectStruct(derefType(field.Type), table); err != nil {
				return err
			}
			continue
		}

		opts, err := parseAdminTag(field.Tag.Get("admin"))
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		if target, ok := opts["relation"]; ok {
			rel, err := inspectRelation(field, target, opts)
			if err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			table.Relations = append(table.Relations, rel)
			continue
		}

		colName := field.Tag.Get("db")
		if colName == "" || colName == "-" {
			continue
		}

		col := Column{
			Name:  colName,
			Label: guessLabel(field.Name),
		}
		if err := applyColumnOptions(&col, field, opts); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		table.Columns = append(table.Columns, col)
	}
	return nil
}

func inspectRelation(field reflect.StructField, target string, opts map[string]string) (Relation, error) {
	rel := Relation{
		Name:   snakeCase(field.Name),
		Label:  guessLabel(field.Name),
		Target: target,
	}
	if label, ok := opts["label"]; ok {
		rel.Label = label
	}

	ft := derefType(field.Type)
	switch {
	case ft.Kind() == reflect.Slice:
		rel.Kind = OneToMany
		rel.RemoteColumn = opts["remote"]
		rel.LocalColumn = opts["local"]
		if rel.RemoteColumn == "" {
			return rel, fmt.Errorf("one-to-many relation %q needs remote=<column>", rel.Name)
		}
	case ft.Kind() == reflect.Struct:
		rel.Kind = ManyToOne
		rel.LocalColumn = opts["local"]
		rel.RemoteColumn = opts["remote"]
		if rel.LocalColumn == "" {
			return rel, fmt.Errorf("many-to-one relation %q needs local=<column>", rel.Name)
		}
	default:
		return rel, fmt.Errorf("relation %q must be a struct or a slice", rel.Name)
	}
	return rel, nil
}

func applyColumnOptions(col *Column, field reflect.StructField, opts map[string]string) error {
	mapFieldType(col, field)

	if _, ok := opts["pk"]; ok {
		col.PrimaryKey = true
	}
	if _, ok := opts["required"]; ok {
		col.Required = true
	}
	if _, ok := opts["readonly"]; ok {
		col.ReadOnly = true
	}
	if label, ok := opts["label"]; ok {
		col.Label = label
	}
	if typ, ok := opts["type"]; ok {
		col.Type = FieldType(typ)
	}
	if fk, ok := opts["fk"]; ok {
		table, column, _ := strings.Cut(fk, ".")
		if table == "" {
			return fmt.Errorf("empty foreign key target")
		}
		col.ForeignKey = &ForeignKey{Table: table, Column: column}
	}
	if enum, ok := opts["enum"]; ok {
		col.Type = TypeEnum
		col.Enum = membersOf(strings.Split(enum, "|"))
	}
	if col.Type == TypeEnum && len(col.Enum) == 0 {
		return fmt.Errorf("enum column %q without members", col.Name)
	}
	return nil
}

func mapFieldType(col *Column, field reflect.StructField) {
	t := field.Type
	if t.Kind() == reflect.Ptr {
		col.Nullable = true
		t = t.Elem()
	}

	if t.Implements(enumeratedType) {
		col.Type = TypeEnum
		col.Enum = membersOf(reflect.Zero(t).Interface().(Enumerated).EnumValues())
		return
	}

	switch t {
	case timeType:
		col.Type = TypeDateTime
		return
	case uuidType:
		col.Type = TypeUUID
		return
	case decimalType:
		col.Type = TypeDecimal
		return
	case rawJSONType:
		col.Type = TypeJSON
		return
	}

	switch t.Kind() {
	case reflect.String:
		col.Type = TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		col.Type = TypeInteger
	case reflect.Float32, reflect.Float64:
		col.Type = TypeNumber
	case reflect.Bool:
		col.Type = TypeBoolean
	case reflect.Map, reflect.Slice, reflect.Struct:
		col.Type = TypeJSON
	default:
		col.Type = TypeString // fallback
	}
}

func parseAdminTag(tag string) (map[string]string, error) {
	opts := make(map[string]string)
	if tag == "" {
		return opts, nil
	}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		switch key {
		case "pk", "required", "readonly", "fk", "enum", "label", "type", "relation", "local", "remote":
		default:
			return nil, fmt.Errorf("unknown admin tag option %q", key)
		}
		opts[key] = strings.TrimSpace(value)
	}
	return opts, nil
}

func membersOf(values []string) []EnumMember {
	members := make([]EnumMember, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		members = append(members, EnumMember{Name: v, Value: v})
	}
	return members
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// guessLabel splits CamelCase and snake_case names into words: "ProfileType" -> "Profile type".
func guessLabel(name string) string {
	return humanize(snakeCase(name))
}

func humanize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	if len(words) == 0 {
		return name
	}
	label := strings.ToLower(strings.Join(words, " "))
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
