package service

import (
	"context"
	"fmt"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/storage"
)

// GetCredentials asks the storage service for upload credentials of the
// given file names. Only the delegated backend can issue them.
func (s *attachmentService) GetCredentials(ctx context.Context, ownerID string, payload map[string]any) (creds map[string]any, err error) {
	ctx, span := s.startSpan(ctx, OpCredentials, ownerID)
	defer func() { endSpan(span, err) }()

	if err := s.validateConfig(OpCredentials); err != nil {
		return nil, err
	}
	if s.opts.Entity == "" {
		return nil, errorf(OpCredentials, KindConfig, "entity is not defined")
	}
	issuer, ok := storage.AsCredentialIssuer(s.backend)
	if !ok {
		return nil, newError(OpCredentials, KindConfig, storage.ErrUnsupported)
	}

	if err := validateCredentialsPayload(payload); err != nil {
		return nil, newError(OpCredentials, KindValidation, err)
	}
	if err := s.postValidate(ctx, OpCredentials, Request{OwnerID: ownerID, Payload: payload}); err != nil {
		return nil, err
	}

	req := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		req[k] = v
	}
	if s.opts.ExpirationOverride != "" {
		req[payloadFileExpiration] = string(s.opts.ExpirationOverride)
	}

	creds, err = issuer.GetCredentials(ctx, s.opts.Entity, req)
	if err != nil {
		return nil, newError(OpCredentials, KindBackend, err)
	}
	return creds, nil
}

func validateCredentialsPayload(payload map[string]any) error {
	names, ok := payload["fileNames"].([]any)
	if !ok || len(names) == 0 {
		return fmt.Errorf("fileNames must be a non-empty array")
	}
	for i, n := range names {
		if s, isString := n.(string); !isString || s == "" {
			return fmt.Errorf("fileNames[%d] must be a non-empty string", i)
		}
	}

	if raw, present := payload["expiration"]; present && raw != nil {
		seconds, isNumber := raw.(float64)
		if !isNumber || seconds <= 0 {
			return fmt.Errorf("expiration must be a positive number")
		}
	}

	if raw, present := payload[payloadFileExpiration]; present && raw != nil {
		label, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%s must be a string", payloadFileExpiration)
		}
		if _, err := domain.ParseExpirationPolicy(label); err != nil {
			return err
		}
	}
	return nil
}
