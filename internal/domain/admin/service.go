package admin

import (
	"context"
	"errors"
	"fmt"

	"adminnext/internal/core/apperror"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/infrastructure/storage/sqldb/crud"
	"adminnext/internal/metadata"
	"adminnext/pkg/logger"
)

// Auditor records successful writes. It runs in the request session, before commit.
type Auditor interface {
	LogChange(ctx context.Context, sess *sqldb.Session, entityType string, entityID any,
		action sqldb.AuditAction, changes map[string]any) error
}

// Service builds the admin views on top of the registry and the CRUD generator.
// Every method works within the session passed by the caller.
type Service struct {
	registry *Registry
	auditor  Auditor
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditor enables audit entries for create and update.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) {
		s.auditor = a
	}
}

// NewService creates a new admin service.
func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the model registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) generator(m *ModelAdmin, sess *sqldb.Session) *crud.Generator {
	return crud.New(m.Table, sess, s.registry.Metadata())
}

// Index lists the registered models.
func (s *Service) Index() []ModelInfo {
	models := s.registry.Models()
	out := make([]ModelInfo, len(models))
	for i, m := range models {
		out[i] = infoOf(m.Table)
	}
	return out
}

// ListView returns one page of rows together with the filter sidebar.
// A zero page or page size falls back to the defaults.
func (s *Service) ListView(ctx context.Context, sess *sqldb.Session, model string, params QueryParams) (*ListView, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}

	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = DefaultPageSize
	}
	if params.PageSize > MaxPageSize {
		params.PageSize = MaxPageSize
	}

	searchFields := params.SearchFields
	if len(searchFields) == 0 {
		searchFields = s.registry.SearchFields(m.Table.Name)
	}

	rows, total, err := s.generator(m, sess).PaginateFilter(ctx, crud.FilterOptions{
		Filters:      params.Filters,
		Search:       params.Search,
		SearchFields: searchFields,
		UseOr:        params.UseOr,
		Sorting:      params.Sorting,
		Page:         params.Page,
		PageSize:     params.PageSize,
	})
	if err != nil {
		return nil, err
	}

	filterFields := make([]FilterField, 0, len(m.FilterFields))
	for _, name := range m.FilterFields {
		options, err := s.registry.FilterOptions(ctx, sess, m.Table.Name, name)
		if err != nil {
			return nil, fmt.Errorf("filter options for %s.%s: %w", m.Table.Name, name, err)
		}
		col, _ := m.Table.Column(name)
		label := col.Label
		if label == "" {
			label = name
		}
		filterFields = append(filterFields, FilterField{Name: name, Label: label, Options: options})
	}

	pages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))

	return &ListView{
		Model:        infoOf(m.Table),
		Rows:         rows,
		Total:        total,
		Columns:      m.Table.ColumnNames(),
		FilterFields: filterFields,
		SearchFields: s.registry.SearchFields(m.Table.Name),
		Pagination: Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      total,
			TotalPages: pages,
		},
		Fields: m.Table.Columns,
	}, nil
}

// CreateView returns the field descriptors, enumeration values and foreign key options
// needed to render an empty form.
func (s *Service) CreateView(ctx context.Context, sess *sqldb.Session, model string) (*CreateView, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}

	enums := make(map[string][]string)
	for _, col := range m.Table.Columns {
		if len(col.Enum) > 0 {
			enums[col.Name] = col.EnumValues()
		}
	}

	related, err := s.generator(m, sess).RelatedOptions(ctx)
	if err != nil {
		return nil, err
	}

	return &CreateView{
		Model:          infoOf(m.Table),
		Fields:         m.Table.Columns,
		EnumFields:     enums,
		RelatedOptions: related,
	}, nil
}

// SaveView validates payload and inserts a new row.
//
// Validation failures are returned as form errors without touching the database.
// Constraint violations reported by the database become form errors too, and the
// session is rolled back.
func (s *Service) SaveView(ctx context.Context, sess *sqldb.Session, model string, payload map[string]any) (*SaveForm, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}

	values := metadata.Row(payload)
	if m.Validation != nil {
		cleaned, errs := m.Validation.Validate(payload)
		if errs != nil {
			return &SaveForm{Errors: errs}, nil
		}
		values = cleaned
	}

	created, err := s.generator(m, sess).Create(ctx, values)
	if err != nil {
		return s.failWrite(ctx, sess, err)
	}

	pk := created[m.Table.PrimaryKeyName()]
	if s.auditor != nil {
		if err := s.auditor.LogChange(ctx, sess, m.Table.Name, pk, sqldb.AuditActionCreate, created); err != nil {
			return s.failWrite(ctx, sess, err)
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return s.failWrite(ctx, sess, err)
	}

	logger.Info(ctx, "object created", "model", m.Table.Name, "id", pk)
	return &SaveForm{Row: created}, nil
}

// UpdateView applies payload to the row identified by id.
//
// A missing row yields {"id": "Object not found"} and nothing is committed. An empty
// payload succeeds without running a statement. Otherwise the existing row merged with
// payload is validated, and only the submitted fields are written.
func (s *Service) UpdateView(ctx context.Context, sess *sqldb.Session, model string, id any, payload map[string]any) (*SaveForm, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}
	g := s.generator(m, sess)

	existing, err := g.GetByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return &SaveForm{Errors: map[string]string{"id": MsgObjectNotFound}}, nil
		}
		return nil, err
	}
	if len(payload) == 0 {
		return &SaveForm{Row: existing}, nil
	}

	values := metadata.Row(payload)
	if m.Validation != nil {
		merged := make(map[string]any, len(existing)+len(payload))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range payload {
			merged[k] = v
		}
		cleaned, errs := m.Validation.Validate(merged)
		if errs != nil {
			return &SaveForm{Errors: errs}, nil
		}
		values = make(metadata.Row, len(payload))
		for k := range payload {
			values[k] = cleaned[k]
		}
	}

	pkName := m.Table.PrimaryKeyName()
	pk := existing[pkName]

	if s.auditor != nil {
		changes := sqldb.Diff(existing, values)
		if err := s.auditor.LogChange(ctx, sess, m.Table.Name, pk, sqldb.AuditActionUpdate, changes); err != nil {
			return s.failWrite(ctx, sess, err)
		}
	}

	if _, err := g.Update(ctx, map[string]any{pkName: pk}, values); err != nil {
		return s.failWrite(ctx, sess, err)
	}

	updated, err := g.GetByID(ctx, pk)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "object updated", "model", m.Table.Name, "id", pk)
	return &SaveForm{Row: updated}, nil
}

// failWrite rolls the session back and turns field-addressable errors into form errors.
func (s *Service) failWrite(ctx context.Context, sess *sqldb.Session, err error) (*SaveForm, error) {
	if rbErr := sess.Rollback(ctx); rbErr != nil {
		err = errors.Join(err, rbErr)
	}
	if fields, ok := apperror.FieldErrors(err); ok {
		return &SaveForm{Errors: fields}, nil
	}
	return nil, err
}

// DetailView returns one row with all its relations loaded and, for every foreign key,
// the (id, label) of the referenced row.
func (s *Service) DetailView(ctx context.Context, sess *sqldb.Session, model string, id any) (*DetailView, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}
	view := &DetailView{Model: infoOf(m.Table), Fields: m.Table.Columns}

	prefetch := make([]string, len(m.Table.Relations))
	for i, rel := range m.Table.Relations {
		prefetch[i] = rel.Name
	}

	row, err := s.generator(m, sess).GetByID(ctx, id, prefetch...)
	if err != nil {
		if apperror.IsNotFound(err) {
			view.Errors = map[string]string{"id": MsgObjectNotFound}
			return view, nil
		}
		return nil, err
	}
	view.Row = row

	meta := s.registry.Metadata()
	related := make(map[string][]RelatedItem)
	for _, col := range m.Table.ForeignKeyColumns() {
		target, ok := meta.ByTable(col.ForeignKey.Table)
		if !ok {
			return nil, apperror.NewConfiguration(
				fmt.Sprintf("could not find model for table %q", col.ForeignKey.Table)).
				WithDetail("model", m.Table.Name)
		}

		items := []RelatedItem{}
		var parent metadata.Row
		if rel, ok := m.Table.RelationForColumn(col.Name); ok {
			parent, _ = row[rel.Name].(metadata.Row)
		} else if row[col.Name] != nil {
			parent, err = crud.New(target, sess, meta).GetByID(ctx, row[col.Name])
			if err != nil && !apperror.IsNotFound(err) {
				return nil, err
			}
		}
		if parent != nil {
			items = append(items, RelatedItem{
				ID:    parent[target.PrimaryKeyName()],
				Label: target.DisplayRow(parent),
			})
		}
		related[col.Name] = items
	}
	view.RelatedData = related
	return view, nil
}

// FilterOptions returns the selectable values of one filter field.
func (s *Service) FilterOptions(ctx context.Context, sess *sqldb.Session, model, field string) ([]metadata.Option, error) {
	return s.registry.FilterOptions(ctx, sess, model, field)
}
