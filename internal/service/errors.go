package service

import (
	"errors"
	"fmt"
)

// Op names the operation that failed.
type Op string

const (
	OpRelation    Op = "relation"
	OpGet         Op = "get"
	OpList        Op = "list"
	OpDelete      Op = "delete"
	OpDownload    Op = "download"
	OpCredentials Op = "credentials"
	OpUpload      Op = "upload"
)

// Kind classifies a failure. The HTTP layer maps it to a status code.
type Kind string

const (
	KindConfig      Kind = "config"      // Deployment is misconfigured
	KindValidation  Kind = "validation"  // Request rejected before any side effect
	KindNotFound    Kind = "not_found"   // Record (or object for downloads) is absent
	KindBackend     Kind = "backend"     // Storage backend failed
	KindPersistence Kind = "persistence" // Repository failed
	KindHook        Kind = "hook"        // A processing hook failed
)

// --- Error Definitions ---
var (
	ErrRecordNotFound = errors.New("file record not found")
	ErrObjectNotFound = errors.New("file object not found")
)

// Error is returned by every AttachmentService operation.
type Error struct {
	Op   Op
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a service error, or "" for any other error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(op Op, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func errorf(op Op, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}
