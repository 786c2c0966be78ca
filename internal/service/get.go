package service

import (
	"context"

	"alcyxob/attachment-service/internal/domain"
)

// Get returns one record of ownerID with a fresh access url. The url is null
// when the stored object no longer exists.
func (s *attachmentService) Get(ctx context.Context, ownerID, fileID string) (view domain.View, err error) {
	ctx, span := s.startSpan(ctx, OpGet, ownerID)
	defer func() { endSpan(span, err) }()

	if err := s.validateConfig(OpGet); err != nil {
		return nil, err
	}
	if err := s.postValidate(ctx, OpGet, Request{OwnerID: ownerID, FileID: fileID}); err != nil {
		return nil, err
	}

	record, err := s.findRecord(ctx, OpGet, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.signOne(ctx, OpGet, record)
	if err != nil {
		return nil, err
	}

	view, err = s.formatRecord(ctx, OpGet, record.View(s.opts.EntityIDField))
	if err != nil {
		return nil, err
	}
	return view.WithURL(url), nil
}

// Download returns the signed url of one record's object.
func (s *attachmentService) Download(ctx context.Context, ownerID, fileID string) (url string, err error) {
	ctx, span := s.startSpan(ctx, OpDownload, ownerID)
	defer func() { endSpan(span, err) }()

	if err := s.validateConfig(OpDownload); err != nil {
		return "", err
	}
	if err := s.postValidate(ctx, OpDownload, Request{OwnerID: ownerID, FileID: fileID}); err != nil {
		return "", err
	}

	record, err := s.findRecord(ctx, OpDownload, ownerID, fileID)
	if err != nil {
		return "", err
	}

	signed, err := s.signOne(ctx, OpDownload, record)
	if err != nil {
		return "", err
	}
	if signed == nil {
		return "", newError(OpDownload, KindNotFound, ErrObjectNotFound)
	}
	return *signed, nil
}
