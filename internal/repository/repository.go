package repository

import (
	"context"

	"alcyxob/attachment-service/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrInsertFailed = RepositoryError("insert failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Filter selects attachments by public field name ("id", the entity id
// field, "name", "dateCreated" or a custom field). A slice value matches
// any of its elements, anything else matches by equality.
type Filter map[string]any

// Query is a filtered, sorted, paged read.
type Query struct {
	Filter    Filter
	SortField string // Public field name, empty for natural order
	SortDesc  bool
	Skip      int64
	Limit     int64 // 0 means no limit
}

// AttachmentRepository defines the interface for interacting with attachment records.
type AttachmentRepository interface {
	// Insert stores a new record and returns its generated id.
	Insert(ctx context.Context, a *domain.Attachment) (string, error)
	// Find returns the records matching q, in q's order.
	Find(ctx context.Context, q Query) ([]domain.Attachment, error)
	// Remove deletes every record matching f and reports how many went.
	Remove(ctx context.Context, f Filter) (int64, error)
	// Count returns the number of records matching f.
	Count(ctx context.Context, f Filter) (int64, error)
}

// FindOne returns the first record matching f or ErrNotFound.
func FindOne(ctx context.Context, repo AttachmentRepository, f Filter) (*domain.Attachment, error) {
	rows, err := repo.Find(ctx, Query{Filter: f, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}
