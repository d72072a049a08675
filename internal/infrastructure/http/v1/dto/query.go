// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"net/url"
	"strconv"
	"strings"

	"adminnext/internal/core/apperror"
	"adminnext/internal/domain/admin"
	"adminnext/internal/domain/filter"
)

// List query parameter names. Any other parameter is a "field__op" filter.
const (
	ParamPage         = "page"
	ParamPageSize     = "page_size"
	ParamSearch       = "q"
	ParamSort         = "sort"
	ParamUseOr        = "use_or"
	ParamSearchFields = "search_fields"
)

var reserved = map[string]struct{}{
	ParamPage:         {},
	ParamPageSize:     {},
	ParamSearch:       {},
	ParamSort:         {},
	ParamUseOr:        {},
	ParamSearchFields: {},
}

// ParseListQuery converts list query parameters into admin.QueryParams.
//
//	?page=2&page_size=20&q=ann&sort=name:asc,-id&use_or=true&price__gt=10&id__in=1,2
//
// A repeated filter parameter is kept as a list.
func ParseListQuery(values url.Values) (admin.QueryParams, error) {
	var params admin.QueryParams

	page, err := intParam(values, ParamPage)
	if err != nil {
		return params, err
	}
	pageSize, err := intParam(values, ParamPageSize)
	if err != nil {
		return params, err
	}
	params.Page = page
	params.PageSize = pageSize

	params.Search = strings.TrimSpace(values.Get(ParamSearch))

	if raw := values.Get(ParamSearchFields); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				params.SearchFields = append(params.SearchFields, f)
			}
		}
	}

	if raw := values.Get(ParamUseOr); raw != "" {
		useOr, err := strconv.ParseBool(raw)
		if err != nil {
			return params, apperror.NewValidation("invalid query parameters").
				WithDetail(ParamUseOr, raw)
		}
		params.UseOr = useOr
	}

	if raw := values.Get(ParamSort); raw != "" {
		sorting, err := filter.ParseSort(raw)
		if err != nil {
			return params, err
		}
		params.Sorting = sorting
	}

	for key, vals := range values {
		if _, ok := reserved[key]; ok || len(vals) == 0 {
			continue
		}
		if params.Filters == nil {
			params.Filters = make(map[string]any)
		}
		if len(vals) == 1 {
			params.Filters[key] = vals[0]
		} else {
			params.Filters[key] = append([]string(nil), vals...)
		}
	}

	return params, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.NewValidation("invalid query parameters").
			WithDetail(key, raw)
	}
	return n, nil
}
