package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"alcyxob/attachment-service/internal/invoker"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]ObjectInfo
	headErr   map[string]error
	deleteErr map[string]error
	heads     int
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   map[string]ObjectInfo{},
		headErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeStore) put(path string, size int64, contentType string) {
	f.objects[path] = ObjectInfo{ContentLength: &size, ContentType: &contentType}
}

func (f *fakeStore) Bucket() string { return "test-bucket" }

func (f *fakeStore) HeadObject(_ context.Context, key string) (ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads++
	if err := f.headErr[key]; err != nil {
		return ObjectInfo{}, err
	}
	info, ok := f.objects[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return info, nil
}

func (f *fakeStore) PresignGetObject(_ context.Context, key, fileName string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key + "?name=" + fileName, nil
}

func (f *fakeStore) PresignPutObject(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	return "https://upload.example/" + key + "?type=" + contentType, nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	if _, ok := f.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type invokerCall struct {
	service string
	action  string
	payload any
}

// fakeInvoker answers calls by action name.
type fakeInvoker struct {
	calls     []invokerCall
	responses map[string]*invoker.Response
	err       error
}

func (f *fakeInvoker) Call(_ context.Context, service, action string, payload any) (*invoker.Response, error) {
	f.calls = append(f.calls, invokerCall{service: service, action: action, payload: payload})
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[action]; ok {
		return resp, nil
	}
	return &invoker.Response{StatusCode: 200}, nil
}

func jsonResponse(status int, v any) *invoker.Response {
	raw, _ := json.Marshal(v)
	return &invoker.Response{StatusCode: status, Payload: raw}
}

var errBoom = errors.New("boom")
