// Package admin provides the model registry and the view-level service behind the admin API.
package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"adminnext/internal/core/apperror"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/infrastructure/storage/sqldb/crud"
	"adminnext/internal/metadata"
)

// ModelAdmin is the admin configuration of one registered model.
type ModelAdmin struct {
	Table        *metadata.Table
	FilterFields []string
	SearchFields []string
	Validation   Validator
}

// Option configures a model at registration.
type Option func(*ModelAdmin)

// WithFilterFields lists the columns offered as list filters.
func WithFilterFields(fields ...string) Option {
	return func(m *ModelAdmin) {
		m.FilterFields = append([]string(nil), fields...)
	}
}

// WithSearchFields lists the columns matched by free-text search.
func WithSearchFields(fields ...string) Option {
	return func(m *ModelAdmin) {
		m.SearchFields = append([]string(nil), fields...)
	}
}

// WithValidation attaches a validation schema used by save and update views.
func WithValidation(v Validator) Option {
	return func(m *ModelAdmin) {
		m.Validation = v
	}
}

// Registry keeps track of the models exposed by the admin.
// It is populated at startup and frozen before serving.
type Registry struct {
	mu     sync.RWMutex
	meta   *metadata.Registry
	models []*ModelAdmin
	byName map[string]*ModelAdmin
	frozen bool
}

// NewRegistry creates an empty registry. Tables registered here are also added to meta.
func NewRegistry(meta *metadata.Registry) *Registry {
	if meta == nil {
		meta = metadata.NewRegistry()
	}
	return &Registry{
		meta:   meta,
		byName: make(map[string]*ModelAdmin),
	}
}

// Metadata returns the table registry used to resolve relations.
func (r *Registry) Metadata() *metadata.Registry {
	return r.meta
}

// Register adds a model. Registering a model name twice has no further effect.
func (r *Registry) Register(table *metadata.Table, opts ...Option) error {
	if table == nil {
		return apperror.NewRegistration("", "table descriptor is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return apperror.NewRegistration(table.Name, "registry is frozen")
	}
	key := strings.ToLower(table.Name)
	if _, ok := r.byName[key]; ok {
		return nil
	}

	m := &ModelAdmin{Table: table}
	for _, opt := range opts {
		opt(m)
	}

	for _, f := range m.FilterFields {
		if _, ok := table.Column(f); !ok {
			return apperror.NewRegistration(table.Name,
				fmt.Sprintf("filter field %q is not a column of %s", f, table.TableName))
		}
	}
	for _, f := range m.SearchFields {
		if _, ok := table.Column(f); !ok {
			return apperror.NewRegistration(table.Name,
				fmt.Sprintf("search field %q is not a column of %s", f, table.TableName))
		}
	}

	if err := r.meta.Register(table); err != nil {
		return apperror.NewRegistration(table.Name, err.Error()).WithCause(err)
	}

	r.models = append(r.models, m)
	r.byName[key] = m
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(table *metadata.Table, opts ...Option) {
	if err := r.Register(table, opts...); err != nil {
		panic(err)
	}
}

// Freeze ends the registration phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*ModelAdmin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelAdmin, len(r.models))
	copy(out, r.models)
	return out
}

// Model looks a model up by name (case-insensitive) or by table name.
func (r *Registry) Model(name string) (*ModelAdmin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.byName[strings.ToLower(name)]; ok {
		return m, true
	}
	for _, m := range r.models {
		if m.Table.TableName == name {
			return m, true
		}
	}
	return nil, false
}

// FilterFields returns the filter fields of a model, empty if it is not registered.
func (r *Registry) FilterFields(name string) []string {
	m, ok := r.Model(name)
	if !ok {
		return []string{}
	}
	return append([]string{}, m.FilterFields...)
}

// SearchFields returns the search fields of a model, empty if it is not registered.
func (r *Registry) SearchFields(name string) []string {
	m, ok := r.Model(name)
	if !ok {
		return []string{}
	}
	return append([]string{}, m.SearchFields...)
}

// Validation returns the validation schema of a model, or nil.
func (r *Registry) Validation(name string) Validator {
	m, ok := r.Model(name)
	if !ok {
		return nil
	}
	return m.Validation
}

func (r *Registry) lookup(name string) (*ModelAdmin, error) {
	m, ok := r.Model(name)
	if !ok {
		return nil, apperror.NewNotFound("model", name)
	}
	return m, nil
}

// FilterOptions returns the selectable values of field for the filter sidebar.
//
// Foreign keys offer every row of the referenced table, enumerations offer their members
// without touching the database, and any other column offers its distinct non-null values.
func (r *Registry) FilterOptions(ctx context.Context, sess *sqldb.Session, name, field string) ([]metadata.Option, error) {
	m, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	table := m.Table

	col, ok := table.Column(field)
	if !ok {
		return nil, apperror.NewNotFound(table.Name+" column", field)
	}

	switch {
	case col.ForeignKey != nil:
		target, ok := r.meta.ByTable(col.ForeignKey.Table)
		if !ok {
			return nil, apperror.NewConfiguration(
				fmt.Sprintf("could not find model for table %q", col.ForeignKey.Table)).
				WithDetail("model", table.Name).
				WithDetail("field", field)
		}
		return crud.New(target, sess, r.meta).Options(ctx, col.ForeignKey.Column)

	case len(col.Enum) > 0:
		options := make([]metadata.Option, len(col.Enum))
		for i, member := range col.Enum {
			options[i] = metadata.Option{Value: member.Value, Label: member.Name}
		}
		return options, nil
	}

	values, err := crud.New(table, sess, r.meta).Distinct(ctx, col.Name)
	if err != nil {
		return nil, err
	}
	options := make([]metadata.Option, len(values))
	for i, v := range values {
		options[i] = metadata.Option{Value: v, Label: fmt.Sprintf("%v", v)}
	}
	return options, nil
}
