package domain

import (
	"time"
)

// Attachment is one stored file tied to one owning entity.
// The file bytes live in the storage backend; Path is the key there and is
// internal use only.
type Attachment struct {
	ID          string
	OwnerID     string // Stored under the deployment's entity id field
	Name        string
	Path        string
	Size        *int64
	MimeType    *string
	Type        FileType
	DateCreated time.Time
	ExpireAt    *time.Time     // Only set for delegated storage with a finite policy
	Custom      map[string]any // Deployment declared extra fields
}

// Reserved attribute names of an attachment document.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldPath        = "path"
	FieldSize        = "size"
	FieldMimeType    = "mimeType"
	FieldType        = "type"
	FieldDateCreated = "dateCreated"
	FieldExpireAt    = "expireAt"
	FieldURL         = "url"
)

// IsReservedField reports whether name collides with a built-in attachment attribute.
func IsReservedField(name string) bool {
	switch name {
	case FieldID, FieldName, FieldPath, FieldSize, FieldMimeType, FieldType, FieldDateCreated, FieldExpireAt, FieldURL:
		return true
	}
	return false
}

// View is the public, JSON-ready representation of an attachment.
// It never carries the storage path.
type View map[string]any

// View builds the caller-facing object. The owner id is exposed under
// entityIDField, custom fields are flattened next to the built-in ones.
func (a *Attachment) View(entityIDField string) View {
	v := make(View, 8+len(a.Custom))
	for k, val := range a.Custom {
		v[k] = val
	}
	v[FieldID] = a.ID
	if entityIDField != "" {
		v[entityIDField] = a.OwnerID
	}
	v[FieldName] = a.Name
	v[FieldSize] = a.Size
	v[FieldMimeType] = a.MimeType
	v[FieldType] = a.Type
	v[FieldDateCreated] = a.DateCreated
	if a.ExpireAt != nil {
		v[FieldExpireAt] = *a.ExpireAt
	}
	delete(v, FieldPath)
	return v
}

// WithURL returns the view with the resolved access URL set. A nil url is
// kept as an explicit null.
func (v View) WithURL(url *string) View {
	if url == nil {
		v[FieldURL] = nil
	} else {
		v[FieldURL] = *url
	}
	delete(v, FieldPath)
	return v
}
