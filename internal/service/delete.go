package service

import (
	"context"
	"log/slog"
)

// Delete removes the record first and then its stored object. The two are
// not transactional: when the object delete fails the row is already gone.
func (s *attachmentService) Delete(ctx context.Context, ownerID, fileID string) (id string, err error) {
	ctx, span := s.startSpan(ctx, OpDelete, ownerID)
	defer func() { endSpan(span, err) }()

	// 1. Validate and load the record
	if err := s.validateConfig(OpDelete); err != nil {
		return "", err
	}
	if err := s.postValidate(ctx, OpDelete, Request{OwnerID: ownerID, FileID: fileID}); err != nil {
		return "", err
	}
	record, err := s.findRecord(ctx, OpDelete, ownerID, fileID)
	if err != nil {
		return "", err
	}

	// 2. Remove the row
	if _, err := s.repo.Remove(ctx, s.ownerFilter(ownerID, fileID)); err != nil {
		return "", newError(OpDelete, KindPersistence, err)
	}

	// 3. Remove the object; a missing object counts as removed
	if record.Path != "" {
		if err := s.backend.DeleteObjects(ctx, []string{record.Path}); err != nil {
			s.logger.Error("object delete failed after record removal",
				slog.String("id", record.ID),
				slog.String("path", record.Path),
				slog.Any("error", err),
			)
			return "", newError(OpDelete, KindBackend, err)
		}
	}

	// 4. Post-delete hook
	if s.hooks.PostDelete != nil {
		if err := s.hooks.PostDelete(ctx, record); err != nil {
			return "", newError(OpDelete, KindHook, err)
		}
	}

	return record.ID, nil
}
