package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// BackendKind tells which of the two storage variants is in use.
type BackendKind string

const (
	// KindBucket is a bucket this service reads and writes directly.
	KindBucket BackendKind = "bucket"
	// KindDelegated is the internal storage service, reached through the invoker.
	KindDelegated BackendKind = "delegated"
)

var (
	// ErrObjectNotFound means the object store has no object under the key.
	ErrObjectNotFound = errors.New("object not found in storage")
	// ErrUnsupported is returned when a capability is not offered by the configured backend.
	ErrUnsupported = errors.New("operation not supported by the configured storage backend")
)

// BackendError wraps a failed backend call. Not-found conditions that the
// caller tolerates never reach this type.
type BackendError struct {
	Op         string
	Path       string
	StatusCode int // Set when the failure is a non-2xx service response
	Err        error
}

func (e *BackendError) Error() string {
	msg := "storage " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// ObjectInfo is the metadata a backend reports for a stored object.
// Nil fields mean the backend did not report them.
type ObjectInfo struct {
	ContentLength *int64  `json:"ContentLength,omitempty"`
	ContentType   *string `json:"ContentType,omitempty"`
}

// FileRef names an object to sign. Name is the download file name.
type FileRef struct {
	Path string
	Name string
}

// Backend is the capability set every storage variant offers.
type Backend interface {
	Kind() BackendKind

	// FilesInfo returns metadata keyed by path. Paths the backend has no
	// information about are absent from the map.
	FilesInfo(ctx context.Context, paths []string) (map[string]ObjectInfo, error)

	// SignURLs returns a time-limited read URL per path. A path missing from
	// the result has no object behind it and resolves to a null URL.
	SignURLs(ctx context.Context, files []FileRef) (map[string]string, error)

	// DeleteObjects removes the objects. Already missing objects are not an error.
	DeleteObjects(ctx context.Context, paths []string) error
}

// CredentialIssuer is implemented by backends that hand out upload credentials.
type CredentialIssuer interface {
	GetCredentials(ctx context.Context, entity string, payload map[string]any) (map[string]any, error)
}

// UploadSigner is implemented by backends that can presign direct uploads.
type UploadSigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
}

// ObjectStore is the client of an object store the service owns a bucket in.
type ObjectStore interface {
	Bucket() string

	// HeadObject returns ErrObjectNotFound when nothing is stored under key.
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)

	// PresignGetObject creates a temporary GET URL. A non-empty fileName is
	// sent back as an attachment Content-Disposition.
	PresignGetObject(ctx context.Context, key, fileName string, expires time.Duration) (string, error)

	// PresignPutObject creates a temporary URL for uploading (PUT).
	PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error)

	// DeleteObject returns ErrObjectNotFound when the object is already gone.
	DeleteObject(ctx context.Context, key string) error
}

type unwrapper interface {
	Unwrap() Backend
}

// AsCredentialIssuer finds a CredentialIssuer in b or in any backend it wraps.
func AsCredentialIssuer(b Backend) (CredentialIssuer, bool) {
	for b != nil {
		if ci, ok := b.(CredentialIssuer); ok {
			return ci, true
		}
		u, ok := b.(unwrapper)
		if !ok {
			return nil, false
		}
		b = u.Unwrap()
	}
	return nil, false
}

// AsUploadSigner finds an UploadSigner in b or in any backend it wraps.
func AsUploadSigner(b Backend) (UploadSigner, bool) {
	for b != nil {
		if us, ok := b.(UploadSigner); ok {
			return us, true
		}
		u, ok := b.(unwrapper)
		if !ok {
			return nil, false
		}
		b = u.Unwrap()
	}
	return nil, false
}

// contentDisposition builds the attachment header value for a download name.
func contentDisposition(fileName string) string {
	if fileName == "" {
		return ""
	}
	clean := make([]rune, 0, len(fileName))
	for _, r := range fileName {
		if r == '"' || r == '\\' || r < 0x20 {
			continue
		}
		clean = append(clean, r)
	}
	return `attachment; filename="` + string(clean) + `"`
}

// uniquePaths drops empty and repeated paths, keeping the first-seen order.
func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
