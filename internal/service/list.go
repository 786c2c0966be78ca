package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"alcyxob/attachment-service/internal/config"
	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/repository"
	"alcyxob/attachment-service/internal/storage"
)

const (
	DefaultPageSize = 60
	MaxPageSize     = 100
)

var baseListFields = []string{domain.FieldID, domain.FieldName, domain.FieldDateCreated}

// ListParams are the query options of a list request.
type ListParams struct {
	Filters       map[string]string
	SortBy        string
	SortDirection string // "asc" or "desc"
	Page          int    // 1-based, 0 means the first page
	PageSize      int    // 0 means DefaultPageSize
}

// ListResult is one page of records and the total number of matches.
type ListResult struct {
	Items []domain.View
	Total int64
}

// List returns a page of ownerID's records. All urls of the page are
// resolved with a single backend call.
func (s *attachmentService) List(ctx context.Context, ownerID string, params ListParams) (result *ListResult, err error) {
	ctx, span := s.startSpan(ctx, OpList, ownerID)
	defer func() { endSpan(span, err) }()

	// 1. Validate configuration and query
	if err := s.validateConfig(OpList); err != nil {
		return nil, err
	}
	sortable, filterable, err := s.listFields()
	if err != nil {
		return nil, err
	}
	query, err := s.buildQuery(params, sortable, filterable)
	if err != nil {
		return nil, err
	}
	if err := s.postValidate(ctx, OpList, Request{OwnerID: ownerID}); err != nil {
		return nil, err
	}

	// The owner always comes from the path
	query.Filter[s.opts.EntityIDField] = ownerID

	// 2. Read the page and the total
	rows, err := s.repo.Find(ctx, query)
	if err != nil {
		return nil, newError(OpList, KindPersistence, err)
	}
	total, err := s.repo.Count(ctx, query.Filter)
	if err != nil {
		return nil, newError(OpList, KindPersistence, err)
	}

	// 3. Resolve urls in one batch
	refs := make([]storage.FileRef, 0, len(rows))
	for _, row := range rows {
		if row.Path != "" {
			refs = append(refs, storage.FileRef{Path: row.Path, Name: row.Name})
		}
	}
	urls := map[string]string{}
	if len(refs) > 0 {
		if urls, err = s.backend.SignURLs(ctx, refs); err != nil {
			return nil, newError(OpList, KindBackend, err)
		}
	}

	// 4. Format
	items := make([]domain.View, 0, len(rows))
	for i := range rows {
		view, err := s.formatRecord(ctx, OpList, rows[i].View(s.opts.EntityIDField))
		if err != nil {
			return nil, err
		}
		var url *string
		if u, ok := urls[rows[i].Path]; ok && rows[i].Path != "" {
			url = &u
		}
		items = append(items, view.WithURL(url))
	}

	return &ListResult{Items: items, Total: total}, nil
}

// listFields returns the sortable and filterable field sets.
func (s *attachmentService) listFields() (sortable, filterable map[string]bool, err error) {
	customSortable, err := config.StringList("custom sortable fields", s.opts.CustomSortableFields)
	if err != nil {
		return nil, nil, newError(OpList, KindConfig, err)
	}
	customFilters, err := config.StringList("custom filters", s.opts.CustomFilters)
	if err != nil {
		return nil, nil, newError(OpList, KindConfig, err)
	}

	sortable = make(map[string]bool, len(baseListFields)+len(customSortable))
	filterable = make(map[string]bool, len(baseListFields)+len(customFilters))
	for _, f := range baseListFields {
		sortable[f] = true
		filterable[f] = true
	}
	for _, f := range customSortable {
		sortable[f] = true
	}
	for _, f := range customFilters {
		filterable[f] = true
	}
	return sortable, filterable, nil
}

func (s *attachmentService) buildQuery(params ListParams, sortable, filterable map[string]bool) (repository.Query, error) {
	query := repository.Query{Filter: repository.Filter{}}

	for name, raw := range params.Filters {
		if !filterable[name] {
			return query, errorf(OpList, KindValidation, "filter %q is not allowed", name)
		}
		if name == domain.FieldDateCreated {
			t, err := parseDate(raw)
			if err != nil {
				return query, errorf(OpList, KindValidation, "filter %s: %v", name, err)
			}
			query.Filter[name] = t
			continue
		}
		query.Filter[name] = raw
	}

	if params.SortBy != "" {
		if !sortable[params.SortBy] {
			return query, errorf(OpList, KindValidation, "sort field %q is not allowed", params.SortBy)
		}
		query.SortField = params.SortBy
	}
	switch strings.ToLower(params.SortDirection) {
	case "", "asc":
	case "desc":
		query.SortDesc = true
	default:
		return query, errorf(OpList, KindValidation, "sort direction must be asc or desc")
	}

	page, size := params.Page, params.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return query, errorf(OpList, KindValidation, "page must be positive")
	}
	if size < 1 || size > MaxPageSize {
		return query, errorf(OpList, KindValidation, "page size must be between 1 and %d", MaxPageSize)
	}
	query.Skip = int64(page-1) * int64(size)
	query.Limit = int64(size)

	return query, nil
}

// parseDate accepts RFC 3339 or unix milliseconds.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
