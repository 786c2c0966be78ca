package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/repository"
	"alcyxob/attachment-service/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "alcyxob/attachment-service/service"

// Options is the per-deployment configuration of the attachment endpoints.
type Options struct {
	// EntityIDField is the record attribute holding the owner id.
	EntityIDField string
	// Entity is sent to the storage service when asking for credentials.
	Entity string
	// Bucket must be set when the direct backend is in use.
	Bucket string
	// ExpirationOverride, when set, wins over the requested expiration.
	ExpirationOverride domain.ExpirationPolicy
	CustomFields       domain.FieldSchema

	// Raw list settings; anything but an array is a config error.
	CustomSortableFields any
	CustomFilters        any

	// UploadPrefix is the first key segment of presigned uploads.
	UploadPrefix string
}

// Request is what PostValidate hooks see.
type Request struct {
	OwnerID string
	FileID  string
	Payload map[string]any
}

// Hooks customise the operations. A nil hook leaves data untouched.
type Hooks struct {
	// PostValidate runs after built-in validation. A failure rejects the request.
	PostValidate func(ctx context.Context, op Op, req Request) error
	// FormatCustomFields rewrites the custom fields before they are stored.
	FormatCustomFields func(ctx context.Context, fields map[string]any) (map[string]any, error)
	// PostSave runs after the record is stored. A failure does not undo the insert.
	PostSave func(ctx context.Context, id string, record *domain.Attachment) error
	// FormatRecord rewrites a record view before the url is added.
	FormatRecord func(ctx context.Context, view domain.View) (domain.View, error)
	// PostDelete runs after row and object are gone.
	PostDelete func(ctx context.Context, record *domain.Attachment) error
}

// AttachmentService relates files to entities and serves them back.
type AttachmentService interface {
	Create(ctx context.Context, ownerID string, payload map[string]any) (string, error)
	Get(ctx context.Context, ownerID, fileID string) (domain.View, error)
	List(ctx context.Context, ownerID string, params ListParams) (*ListResult, error)
	Delete(ctx context.Context, ownerID, fileID string) (string, error)
	Download(ctx context.Context, ownerID, fileID string) (string, error)
	GetCredentials(ctx context.Context, ownerID string, payload map[string]any) (map[string]any, error)
	RequestUpload(ctx context.Context, ownerID string, payload map[string]any) (*UploadTicket, error)
}

// attachmentService implements the AttachmentService interface.
type attachmentService struct {
	repo    repository.AttachmentRepository
	backend storage.Backend
	opts    Options
	hooks   Hooks
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewAttachmentService creates a new instance of attachmentService.
func NewAttachmentService(
	repo repository.AttachmentRepository,
	backend storage.Backend,
	opts Options,
	hooks Hooks,
	logger *slog.Logger,
) AttachmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &attachmentService{
		repo:    repo,
		backend: backend,
		opts:    opts,
		hooks:   hooks,
		logger:  logger.With(slog.String("component", "service.attachments")),
		tracer:  otel.Tracer(tracerName),
	}
}

// validateConfig checks the settings every operation depends on.
func (s *attachmentService) validateConfig(op Op) error {
	if s.opts.EntityIDField == "" {
		return errorf(op, KindConfig, "entity id field is not defined")
	}
	if domain.IsReservedField(s.opts.EntityIDField) {
		return errorf(op, KindConfig, "entity id field %q collides with a built-in attribute", s.opts.EntityIDField)
	}
	if s.repo == nil || s.backend == nil {
		return errorf(op, KindConfig, "attachment service is not wired")
	}
	if s.backend.Kind() == storage.KindBucket && s.opts.Bucket == "" {
		return errorf(op, KindConfig, "bucket is not defined")
	}
	if s.opts.ExpirationOverride != "" && !s.opts.ExpirationOverride.Valid() {
		return errorf(op, KindConfig, "invalid expiration override %q", s.opts.ExpirationOverride)
	}
	for _, name := range s.opts.CustomFields.Names() {
		if domain.IsReservedField(name) || name == s.opts.EntityIDField {
			return errorf(op, KindConfig, "custom field %q collides with a built-in attribute", name)
		}
	}
	return nil
}

func (s *attachmentService) postValidate(ctx context.Context, op Op, req Request) error {
	if s.hooks.PostValidate == nil {
		return nil
	}
	if err := s.hooks.PostValidate(ctx, op, req); err != nil {
		return newError(op, KindValidation, err)
	}
	return nil
}

func (s *attachmentService) formatRecord(ctx context.Context, op Op, view domain.View) (domain.View, error) {
	if s.hooks.FormatRecord == nil {
		return view, nil
	}
	formatted, err := s.hooks.FormatRecord(ctx, view)
	if err != nil {
		return nil, newError(op, KindHook, err)
	}
	if formatted == nil {
		formatted = domain.View{}
	}
	return formatted, nil
}

// ownerFilter selects one record of one owner.
func (s *attachmentService) ownerFilter(ownerID, fileID string) repository.Filter {
	return repository.Filter{
		s.opts.EntityIDField: ownerID,
		domain.FieldID:       fileID,
	}
}

// findRecord loads the record of a get/delete/download request.
func (s *attachmentService) findRecord(ctx context.Context, op Op, ownerID, fileID string) (*domain.Attachment, error) {
	record, err := repository.FindOne(ctx, s.repo, s.ownerFilter(ownerID, fileID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(op, KindNotFound, ErrRecordNotFound)
		}
		return nil, newError(op, KindPersistence, err)
	}
	return record, nil
}

// signOne resolves the url of a single record; nil means no object.
func (s *attachmentService) signOne(ctx context.Context, op Op, record *domain.Attachment) (*string, error) {
	if record.Path == "" {
		return nil, nil
	}
	urls, err := s.backend.SignURLs(ctx, []storage.FileRef{{Path: record.Path, Name: record.Name}})
	if err != nil {
		return nil, newError(op, KindBackend, err)
	}
	if u, ok := urls[record.Path]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *attachmentService) startSpan(ctx context.Context, op Op, ownerID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("attachments.owner_id", ownerID)}
	if s.backend != nil {
		attrs = append(attrs, attribute.String("attachments.backend", string(s.backend.Kind())))
	}
	return s.tracer.Start(ctx, fmt.Sprintf("attachments.%s", op), trace.WithAttributes(attrs...))
}

// endSpan records err on the span and closes it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := KindOf(err); kind != "" {
			span.SetAttributes(attribute.String("attachments.error_kind", string(kind)))
		}
	}
	span.End()
}
