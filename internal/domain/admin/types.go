package admin

import (
	"adminnext/internal/domain/filter"
	"adminnext/internal/metadata"
)

// Default list paging.
const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// MsgObjectNotFound is reported under the "id" key when a row does not exist.
const MsgObjectNotFound = "Object not found"

// QueryParams are the list view inputs.
type QueryParams struct {
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	Filters      map[string]any `json:"filter_params,omitempty"`
	Search       string         `json:"search,omitempty"`
	SearchFields []string       `json:"search_fields,omitempty"`
	Sorting      []filter.Sort  `json:"sorting,omitempty"`
	UseOr        bool           `json:"use_or,omitempty"`
}

// ModelInfo identifies a registered model.
type ModelInfo struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	Label string `json:"label"`
}

// FilterField is one filter of the list sidebar with its selectable values.
type FilterField struct {
	Name    string            `json:"name"`
	Label   string            `json:"label"`
	Options []metadata.Option `json:"options"`
}

// Pagination describes the current page of a list.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListView is the list page of a model.
type ListView struct {
	Model        ModelInfo         `json:"model"`
	Rows         []metadata.Row    `json:"rows"`
	Total        int64             `json:"total"`
	Columns      []string          `json:"columns"`
	FilterFields []FilterField     `json:"filter_fields"`
	SearchFields []string          `json:"search_fields"`
	Pagination   Pagination        `json:"pagination"`
	Fields       []metadata.Column `json:"fields"`
}

// CreateView is the data needed to render an empty form.
type CreateView struct {
	Model          ModelInfo                    `json:"model"`
	Fields         []metadata.Column            `json:"fields"`
	EnumFields     map[string][]string          `json:"enum_fields"`
	RelatedOptions map[string][]metadata.Option `json:"related_options"`
}

// SaveForm is the outcome of a save or update. Errors is nil on success.
type SaveForm struct {
	Errors map[string]string `json:"errors"`
	Row    metadata.Row      `json:"row,omitempty"`
}

// OK reports whether the write succeeded.
func (f SaveForm) OK() bool {
	return len(f.Errors) == 0
}

// RelatedItem is one (id, label) pair of a detail page's related data.
type RelatedItem struct {
	ID    any    `json:"id"`
	Label string `json:"label"`
}

// DetailView is the detail page of one row.
type DetailView struct {
	Model       ModelInfo                `json:"model"`
	Row         metadata.Row             `json:"row,omitempty"`
	Fields      []metadata.Column        `json:"fields,omitempty"`
	RelatedData map[string][]RelatedItem `json:"related_data,omitempty"`
	Errors      map[string]string        `json:"errors,omitempty"`
}

// Found reports whether the row exists.
func (d DetailView) Found() bool {
	return d.Errors == nil
}

func infoOf(t *metadata.Table) ModelInfo {
	label := t.Label
	if label == "" {
		label = t.Name
	}
	return ModelInfo{Name: t.Name, Table: t.TableName, Label: label}
}
