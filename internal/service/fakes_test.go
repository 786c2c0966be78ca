package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/repository"
	"alcyxob/attachment-service/internal/storage"
)

const entityField = "productId"

var errBoom = errors.New("boom")

// memRepo is an in-memory repository.AttachmentRepository.
type memRepo struct {
	rows      []domain.Attachment
	nextID    int
	insertErr error
	findErr   error
	removeErr error
}

func (r *memRepo) Insert(_ context.Context, a *domain.Attachment) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	r.nextID++
	a.ID = fmt.Sprintf("file-%d", r.nextID)
	r.rows = append(r.rows, *a)
	return a.ID, nil
}

func (r *memRepo) Find(_ context.Context, q repository.Query) ([]domain.Attachment, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := []domain.Attachment{}
	for _, row := range r.rows {
		if matches(row, q.Filter) {
			out = append(out, row)
		}
	}
	if q.SortField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := fmt.Sprint(fieldValue(out[i], q.SortField)) < fmt.Sprint(fieldValue(out[j], q.SortField))
			if q.SortDesc {
				return !less
			}
			return less
		})
	}
	if q.Skip > 0 {
		if int(q.Skip) >= len(out) {
			return []domain.Attachment{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int(q.Limit) < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memRepo) Remove(_ context.Context, f repository.Filter) (int64, error) {
	if r.removeErr != nil {
		return 0, r.removeErr
	}
	kept := r.rows[:0]
	var removed int64
	for _, row := range r.rows {
		if matches(row, f) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func (r *memRepo) Count(_ context.Context, f repository.Filter) (int64, error) {
	var n int64
	for _, row := range r.rows {
		if matches(row, f) {
			n++
		}
	}
	return n, nil
}

func matches(a domain.Attachment, f repository.Filter) bool {
	for k, want := range f {
		got := fieldValue(a, k)
		if wt, ok := want.(time.Time); ok {
			gt, _ := got.(time.Time)
			if !wt.Equal(gt) {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func fieldValue(a domain.Attachment, name string) any {
	switch name {
	case domain.FieldID:
		return a.ID
	case entityField:
		return a.OwnerID
	case domain.FieldName:
		return a.Name
	case domain.FieldDateCreated:
		return a.DateCreated
	default:
		return a.Custom[name]
	}
}

// fakeBackend records calls and answers from its maps.
type fakeBackend struct {
	kind        storage.BackendKind
	info        map[string]storage.ObjectInfo
	urls        map[string]string
	infoErr     error
	signErr     error
	deleteErr   error
	signCalls   [][]storage.FileRef
	deleteCalls [][]string
}

func newFakeBackend(kind storage.BackendKind) *fakeBackend {
	return &fakeBackend{kind: kind, info: map[string]storage.ObjectInfo{}, urls: map[string]string{}}
}

func (b *fakeBackend) Kind() storage.BackendKind { return b.kind }

func (b *fakeBackend) FilesInfo(_ context.Context, paths []string) (map[string]storage.ObjectInfo, error) {
	if b.infoErr != nil {
		return nil, b.infoErr
	}
	out := map[string]storage.ObjectInfo{}
	for _, p := range paths {
		if info, ok := b.info[p]; ok {
			out[p] = info
		}
	}
	return out, nil
}

func (b *fakeBackend) SignURLs(_ context.Context, files []storage.FileRef) (map[string]string, error) {
	b.signCalls = append(b.signCalls, files)
	if b.signErr != nil {
		return nil, b.signErr
	}
	out := map[string]string{}
	for _, f := range files {
		if u, ok := b.urls[f.Path]; ok {
			out[f.Path] = u
		}
	}
	return out, nil
}

func (b *fakeBackend) DeleteObjects(_ context.Context, paths []string) error {
	b.deleteCalls = append(b.deleteCalls, paths)
	return b.deleteErr
}

// delegatedFake adds the credential capability.
type delegatedFake struct {
	*fakeBackend
	entity  string
	request map[string]any
	creds   map[string]any
	err     error
}

func (d *delegatedFake) GetCredentials(_ context.Context, entity string, payload map[string]any) (map[string]any, error) {
	d.entity, d.request = entity, payload
	if d.err != nil {
		return nil, d.err
	}
	return d.creds, nil
}

// bucketFake adds the upload capability.
type bucketFake struct {
	*fakeBackend
	key         string
	contentType string
}

func (b *bucketFake) PresignUpload(_ context.Context, key, contentType string) (string, error) {
	b.key, b.contentType = key, contentType
	return "https://upload.example/" + key, nil
}

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func newTestService(repo repository.AttachmentRepository, backend storage.Backend, opts Options, hooks Hooks) AttachmentService {
	if opts.EntityIDField == "" {
		opts.EntityIDField = entityField
	}
	if backend != nil && backend.Kind() == storage.KindBucket && opts.Bucket == "" {
		opts.Bucket = "files"
	}
	return NewAttachmentService(repo, backend, opts, hooks, discardLogger())
}

func hasPath(v domain.View) bool {
	for k := range v {
		if strings.EqualFold(k, domain.FieldPath) {
			return true
		}
	}
	return false
}
