package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/storage"

	"github.com/go-playground/validator/v10"
)

// Payload keys of the relation request.
const (
	payloadFileName       = "fileName"
	payloadFileSource     = "fileSource"
	payloadFileExpiration = "fileExpiration"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// relationPayload holds the built-in part of a relation request.
type relationPayload struct {
	FileName       string `validate:"required"`
	FileSource     string `validate:"required"`
	FileExpiration string `validate:"omitempty,oneof=oneDay tenDays month never"`
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Create relates an uploaded file to ownerID and returns the new record id.
func (s *attachmentService) Create(ctx context.Context, ownerID string, payload map[string]any) (id string, err error) {
	ctx, span := s.startSpan(ctx, OpRelation, ownerID)
	defer func() { endSpan(span, err) }()

	// 1. Validate configuration
	if err := s.validateConfig(OpRelation); err != nil {
		return "", err
	}

	// 2. Validate payload
	req, err := s.parseRelationPayload(payload)
	if err != nil {
		return "", err
	}
	if err := s.postValidate(ctx, OpRelation, Request{OwnerID: ownerID, Payload: payload}); err != nil {
		return "", err
	}

	// 3. Fetch metadata of the stored object
	info, err := s.backend.FilesInfo(ctx, []string{req.FileSource})
	if err != nil {
		return "", newError(OpRelation, KindBackend, err)
	}
	meta := info[req.FileSource] // absent: size and mime type stay null

	// 4. Resolve expiration, only the storage service enforces it
	var expireAt *time.Time
	createdAt := now()
	if s.backend.Kind() == storage.KindDelegated {
		expireAt = domain.ResolveExpiration(s.opts.ExpirationOverride, domain.ExpirationPolicy(req.FileExpiration), createdAt)
	}

	// 5. Merge custom fields
	custom, err := s.customFields(ctx, payload)
	if err != nil {
		return "", err
	}

	record := &domain.Attachment{
		OwnerID:     ownerID,
		Name:        req.FileName,
		Path:        req.FileSource,
		Size:        meta.ContentLength,
		MimeType:    meta.ContentType,
		Type:        domain.ClassifyMimeTypePtr(meta.ContentType),
		DateCreated: createdAt,
		ExpireAt:    expireAt,
		Custom:      custom,
	}

	// 6. Persist
	id, err = s.repo.Insert(ctx, record)
	if err != nil {
		return "", newError(OpRelation, KindPersistence, err)
	}
	record.ID = id

	// 7. Post-save hook; the record is already committed
	if s.hooks.PostSave != nil {
		if hookErr := s.hooks.PostSave(ctx, id, record); hookErr != nil {
			s.logger.Error("post-save hook failed, record kept",
				slog.String("id", id),
				slog.String("ownerId", ownerID),
				slog.Any("error", hookErr),
			)
			return "", newError(OpRelation, KindHook, hookErr)
		}
	}

	return id, nil
}

func (s *attachmentService) parseRelationPayload(payload map[string]any) (*relationPayload, error) {
	if payload == nil {
		return nil, errorf(OpRelation, KindValidation, "request body is required")
	}

	req := &relationPayload{}
	var err error
	if req.FileName, err = stringField(payload, payloadFileName); err != nil {
		return nil, newError(OpRelation, KindValidation, err)
	}
	if req.FileSource, err = stringField(payload, payloadFileSource); err != nil {
		return nil, newError(OpRelation, KindValidation, err)
	}
	if raw, ok := payload[payloadFileExpiration]; ok && raw != nil {
		exp, isString := raw.(string)
		if !isString {
			return nil, errorf(OpRelation, KindValidation, "%s must be a string", payloadFileExpiration)
		}
		req.FileExpiration = exp
	}

	if err := validate.Struct(req); err != nil {
		return nil, newError(OpRelation, KindValidation, describeValidation(err))
	}

	// Unknown fields are rejected
	var unknown []string
	for key := range payload {
		switch key {
		case payloadFileName, payloadFileSource, payloadFileExpiration:
			continue
		}
		if _, declared := s.opts.CustomFields[key]; !declared {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errorf(OpRelation, KindValidation, "unexpected fields %v", unknown)
	}

	for _, name := range s.opts.CustomFields.Names() {
		value, present := payload[name]
		if err := s.opts.CustomFields.Check(name, value, present); err != nil {
			return nil, newError(OpRelation, KindValidation, err)
		}
	}
	return req, nil
}

// customFields collects the declared custom fields of payload and runs the
// formatting hook over them.
func (s *attachmentService) customFields(ctx context.Context, payload map[string]any) (map[string]any, error) {
	fields := make(map[string]any)
	for name := range s.opts.CustomFields {
		if value, ok := payload[name]; ok {
			fields[name] = value
		}
	}

	if s.hooks.FormatCustomFields == nil {
		return fields, nil
	}
	formatted, err := s.hooks.FormatCustomFields(ctx, fields)
	if err != nil {
		return nil, newError(OpRelation, KindHook, err)
	}
	for name := range formatted {
		if domain.IsReservedField(name) || name == s.opts.EntityIDField {
			return nil, errorf(OpRelation, KindHook, "formatted custom field %q collides with a built-in attribute", name)
		}
	}
	return formatted, nil
}

func stringField(payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return "", nil // left to the required rule
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// describeValidation turns validator errors into a short client message.
func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]+('a'-'A')) + s[1:]
}
