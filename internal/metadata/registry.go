// Package metadata describes the tables the admin can manage.
//
// A Table is an explicit schema descriptor (columns, relations, primary key),
// so the rest of the admin never reflects over arbitrary Go values at request time.
package metadata

import (
	"fmt"
	"strings"
	"sync"
)

// FieldType defines the data type of a column.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeNumber   FieldType = "number" // float
	TypeDecimal  FieldType = "decimal"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeUUID     FieldType = "uuid"
	TypeEnum     FieldType = "enum"
	TypeJSON     FieldType = "json"
)

// Row is one database record keyed by column name.
type Row map[string]any

// Option is a value/label pair offered to a selection widget.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// EnumMember is one allowed value of an enumerated column.
type EnumMember struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ForeignKey points a column at a column of another table.
// An empty Column means the target's primary key.
type ForeignKey struct {
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
}

// Column describes a single table column.
type Column struct {
	Name       string       `json:"name"`
	Label      string       `json:"label,omitempty"`
	Type       FieldType    `json:"type"`
	PrimaryKey bool         `json:"primaryKey,omitempty"`
	Nullable   bool         `json:"nullable,omitempty"`
	Required   bool         `json:"required,omitempty"`
	ReadOnly   bool         `json:"readOnly,omitempty"`
	ForeignKey *ForeignKey  `json:"foreignKey,omitempty"`
	Enum       []EnumMember `json:"enum,omitempty"`
}

// IsText reports whether the column stores character data.
func (c Column) IsText() bool {
	return c.Type == TypeString || c.Type == TypeEnum
}

// EnumValues returns the raw values of an enumerated column.
func (c Column) EnumValues() []string {
	values := make([]string, len(c.Enum))
	for i, m := range c.Enum {
		values[i] = m.Value
	}
	return values
}

// RelationKind tells which side of a relation holds the foreign key.
type RelationKind string

const (
	// ManyToOne: LocalColumn on this table references RemoteColumn on Target.
	ManyToOne RelationKind = "many_to_one"
	// OneToMany: RemoteColumn on Target references LocalColumn on this table.
	OneToMany RelationKind = "one_to_many"
)

// Relation is a navigable link to another table.
type Relation struct {
	Name         string       `json:"name"`
	Label        string       `json:"label,omitempty"`
	Kind         RelationKind `json:"kind"`
	Target       string       `json:"target"` // table name
	LocalColumn  string       `json:"localColumn,omitempty"`
	RemoteColumn string       `json:"remoteColumn,omitempty"`
}

// DisplayFunc renders a row for humans (select labels, related data).
type DisplayFunc func(Row) string

// Table describes a managed model.
type Table struct {
	Name      string      `json:"name"` // model name, e.g. "User"
	TableName string      `json:"table"`
	Label     string      `json:"label,omitempty"`
	Columns   []Column    `json:"columns"`
	Relations []Relation  `json:"relations,omitempty"`
	Display   DisplayFunc `json:"-"`
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key column.
func (t *Table) PrimaryKey() (Column, bool) {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKeyName returns the primary key column name, "id" if none is flagged.
func (t *Table) PrimaryKeyName() string {
	if pk, ok := t.PrimaryKey(); ok {
		return pk.Name
	}
	return "id"
}

// Relation looks up a relation by name.
func (t *Table) Relation(name string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// ForeignKeyColumns returns every column that references another table.
func (t *Table) ForeignKeyColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if c.ForeignKey != nil {
			cols = append(cols, c)
		}
	}
	return cols
}

// RelationForColumn returns the many-to-one relation backed by column, if any.
func (t *Table) RelationForColumn(column string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.Kind == ManyToOne && r.LocalColumn == column {
			return r, true
		}
	}
	return Relation{}, false
}

// DisplayRow renders row with the table's Display func or a generic fallback.
func (t *Table) DisplayRow(row Row) string {
	if t.Display != nil {
		return t.Display(row)
	}
	return fmt.Sprintf("%s object (%v)", t.Name, row[t.PrimaryKeyName()])
}

// normalize fills derivable fields and checks internal consistency.
func (t *Table) normalize() error {
	if t.Name == "" {
		return fmt.Errorf("table has no model name")
	}
	if t.TableName == "" {
		return fmt.Errorf("%s: table name is empty", t.Name)
	}
	if t.Label == "" {
		t.Label = t.Name
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s: no columns", t.Name)
	}

	seen := make(map[string]struct{}, len(t.Columns))
	pks := 0
	for i := range t.Columns {
		c := &t.Columns[i]
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%s: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.PrimaryKey {
			pks++
		}
		if c.Label == "" {
			c.Label = humanize(c.Name)
		}
		if c.Type == TypeEnum && len(c.Enum) == 0 {
			return fmt.Errorf("%s.%s: enum column without members", t.Name, c.Name)
		}
	}
	if pks != 1 {
		return fmt.Errorf("%s: expected exactly one primary key column, got %d", t.Name, pks)
	}

	for i := range t.Relations {
		r := &t.Relations[i]
		if r.Target == "" {
			return fmt.Errorf("%s.%s: relation without target", t.Name, r.Name)
		}
		switch r.Kind {
		case ManyToOne:
			col, ok := t.Column(r.LocalColumn)
			if !ok {
				return fmt.Errorf("%s.%s: local column %q does not exist", t.Name, r.Name, r.LocalColumn)
			}
			if col.ForeignKey == nil {
				// The relation implies the foreign key.
				for j := range t.Columns {
					if t.Columns[j].Name == col.Name {
						t.Columns[j].ForeignKey = &ForeignKey{Table: r.Target, Column: r.RemoteColumn}
					}
				}
			}
		case OneToMany:
			if r.RemoteColumn == "" {
				return fmt.Errorf("%s.%s: one-to-many relation needs a remote column", t.Name, r.Name)
			}
			if r.LocalColumn == "" {
				r.LocalColumn = t.PrimaryKeyName()
			}
		default:
			return fmt.Errorf("%s.%s: unknown relation kind %q", t.Name, r.Name, r.Kind)
		}
		if r.Label == "" {
			r.Label = humanize(r.Name)
		}
	}
	return nil
}

// Resolver finds table descriptors by SQL table name.
type Resolver interface {
	ByTable(name string) (*Table, bool)
}

// Registry stores table descriptors in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []*Table
	byName  map[string]*Table
	byTable map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Table),
		byTable: make(map[string]*Table),
	}
}

// Register validates and stores a table. Registering the same *Table twice is a no-op.
func (r *Registry) Register(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[strings.ToLower(t.Name)]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("model %q already registered", t.Name)
	}
	if _, ok := r.byTable[t.TableName]; ok {
		return fmt.Errorf("table %q already registered", t.TableName)
	}
	if err := t.normalize(); err != nil {
		return err
	}

	r.order = append(r.order, t)
	r.byName[strings.ToLower(t.Name)] = t
	r.byTable[t.TableName] = t
	return nil
}

// Get returns a table by model name (case-insensitive).
func (r *Registry) Get(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// ByTable returns a table by SQL table name.
func (r *Registry) ByTable(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byTable[name]
	return t, ok
}

// List returns all tables in registration order.
func (r *Registry) List() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Table, len(r.order))
	copy(list, r.order)
	return list
}
