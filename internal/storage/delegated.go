package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"alcyxob/attachment-service/internal/invoker"
)

// Service and actions of the internal storage service.
const (
	StorageServiceName = "storage"

	ActionGetFilesInfo   = "GetFilesInfo"
	ActionGetSignedFiles = "GetSignedFiles"
	ActionGetCredentials = "GetCredentials"
	ActionDeleteFiles    = "DeleteFiles"
)

// DelegatedBackend forwards every operation to the storage service.
//
// Read operations are tolerant: a non-2xx answer means "no information" and
// yields an empty map. Only transport failures are returned as errors.
type DelegatedBackend struct {
	invoker     invoker.Invoker
	serviceName string
	logger      *slog.Logger
}

// NewDelegatedBackend creates the backend. serviceName identifies this
// service in credential requests when the caller context carries none.
func NewDelegatedBackend(inv invoker.Invoker, serviceName string, logger *slog.Logger) *DelegatedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &DelegatedBackend{
		invoker:     inv,
		serviceName: serviceName,
		logger:      logger.With(slog.String("component", "storage.delegated")),
	}
}

func (d *DelegatedBackend) Kind() BackendKind { return KindDelegated }

type pathsRequest struct {
	Paths []string `json:"paths"`
}

func (d *DelegatedBackend) FilesInfo(ctx context.Context, paths []string) (map[string]ObjectInfo, error) {
	out := make(map[string]ObjectInfo)
	paths = uniquePaths(paths)
	if len(paths) == 0 {
		return out, nil
	}

	resp, err := d.invoker.Call(ctx, StorageServiceName, ActionGetFilesInfo, pathsRequest{Paths: paths})
	if err != nil {
		return nil, &BackendError{Op: "files_info", Err: err}
	}
	if !resp.OK() {
		d.logger.Warn("storage service returned no file info", slog.Int("status", resp.StatusCode))
		return out, nil
	}
	if err := resp.Decode(&out); err != nil {
		return nil, &BackendError{Op: "files_info", Err: fmt.Errorf("decode payload: %w", err)}
	}
	return out, nil
}

// SignURLs resolves every path in one round trip. File names are not sent:
// the storage service derives the download name itself.
func (d *DelegatedBackend) SignURLs(ctx context.Context, files []FileRef) (map[string]string, error) {
	out := make(map[string]string)
	raw := make([]string, 0, len(files))
	for _, f := range files {
		raw = append(raw, f.Path)
	}
	paths := uniquePaths(raw)
	if len(paths) == 0 {
		return out, nil
	}

	resp, err := d.invoker.Call(ctx, StorageServiceName, ActionGetSignedFiles, pathsRequest{Paths: paths})
	if err != nil {
		return nil, &BackendError{Op: "sign", Err: err}
	}
	if !resp.OK() {
		d.logger.Warn("storage service returned no signed urls", slog.Int("status", resp.StatusCode))
		return out, nil
	}

	var signed map[string]*string
	if err := resp.Decode(&signed); err != nil {
		return nil, &BackendError{Op: "sign", Err: fmt.Errorf("decode payload: %w", err)}
	}
	for p, u := range signed {
		if u != nil && *u != "" {
			out[p] = *u
		}
	}
	return out, nil
}

func (d *DelegatedBackend) DeleteObjects(ctx context.Context, paths []string) error {
	paths = uniquePaths(paths)
	if len(paths) == 0 {
		return nil
	}

	resp, err := d.invoker.Call(ctx, StorageServiceName, ActionDeleteFiles, pathsRequest{Paths: paths})
	if err != nil {
		return &BackendError{Op: "delete", Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if !resp.OK() {
		return &BackendError{Op: "delete", StatusCode: resp.StatusCode, Err: fmt.Errorf("storage service rejected delete")}
	}
	return nil
}

// GetCredentials implements CredentialIssuer. The payload is forwarded with
// the calling service and the entity name added.
func (d *DelegatedBackend) GetCredentials(ctx context.Context, entity string, payload map[string]any) (map[string]any, error) {
	req := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		req[k] = v
	}
	req["service"] = d.callerService(ctx)
	req["entity"] = entity

	resp, err := d.invoker.Call(ctx, StorageServiceName, ActionGetCredentials, req)
	if err != nil {
		return nil, &BackendError{Op: "credentials", Err: err}
	}
	if !resp.OK() {
		return nil, &BackendError{Op: "credentials", StatusCode: resp.StatusCode, Err: fmt.Errorf("storage service refused credentials")}
	}

	creds := map[string]any{}
	if err := resp.Decode(&creds); err != nil {
		return nil, &BackendError{Op: "credentials", Err: fmt.Errorf("decode payload: %w", err)}
	}
	return creds, nil
}

func (d *DelegatedBackend) callerService(ctx context.Context) string {
	if c, ok := invoker.CallerFromContext(ctx); ok && c.ServiceName != "" {
		return c.ServiceName
	}
	return d.serviceName
}
