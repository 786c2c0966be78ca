package service

import (
	"context"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"alcyxob/attachment-service/internal/storage"

	"github.com/google/uuid"
)

const defaultUploadPrefix = "uploads"

// UploadTicket lets a client upload straight to the bucket and relate the
// file afterwards with FileSource.
type UploadTicket struct {
	UploadURL   string `json:"uploadUrl"`
	FileSource  string `json:"fileSource"`
	ContentType string `json:"contentType"`
}

// RequestUpload presigns a PUT for a new object owned by ownerID.
func (s *attachmentService) RequestUpload(ctx context.Context, ownerID string, payload map[string]any) (ticket *UploadTicket, err error) {
	ctx, span := s.startSpan(ctx, OpUpload, ownerID)
	defer func() { endSpan(span, err) }()

	if err := s.validateConfig(OpUpload); err != nil {
		return nil, err
	}
	signer, ok := storage.AsUploadSigner(s.backend)
	if !ok {
		return nil, newError(OpUpload, KindConfig, storage.ErrUnsupported)
	}
	// The owner id becomes a key segment
	if ownerID == "" || ownerID == "." || ownerID == ".." || strings.ContainsAny(ownerID, `/\`) {
		return nil, errorf(OpUpload, KindValidation, "invalid owner id %q", ownerID)
	}

	fileName, err := stringField(payload, payloadFileName)
	if err != nil {
		return nil, newError(OpUpload, KindValidation, err)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, errorf(OpUpload, KindValidation, "%s is required", payloadFileName)
	}
	if err := s.postValidate(ctx, OpUpload, Request{OwnerID: ownerID, Payload: payload}); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	prefix := strings.Trim(s.opts.UploadPrefix, "/")
	if prefix == "" {
		prefix = defaultUploadPrefix
	}
	key := path.Join(prefix, ownerID, uuid.NewString()+ext)

	uploadURL, err := signer.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, newError(OpUpload, KindBackend, err)
	}

	return &UploadTicket{UploadURL: uploadURL, FileSource: key, ContentType: contentType}, nil
}
