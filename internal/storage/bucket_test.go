package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketBackend_HeadInfo(t *testing.T) {
	store := newFakeStore()
	store.put("a/doc.pdf", 2048, "application/msword")
	b := NewBucketBackend(store, BucketOptions{}, nil)

	info, err := b.HeadInfo(context.Background(), "a/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), *info.ContentLength)
	assert.Equal(t, "application/msword", *info.ContentType)

	_, err = b.HeadInfo(context.Background(), "missing")
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "head", be.Op)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestBucketBackend_FilesInfoAbortsOnMissing(t *testing.T) {
	store := newFakeStore()
	store.put("a", 1, "text/plain")
	b := NewBucketBackend(store, BucketOptions{}, nil)

	_, err := b.FilesInfo(context.Background(), []string{"a", "b"})
	assert.Error(t, err)

	info, err := b.FilesInfo(context.Background(), []string{"a", "a", ""})
	require.NoError(t, err)
	assert.Len(t, info, 1)
}

func TestBucketBackend_SignURL(t *testing.T) {
	store := newFakeStore()
	store.put("a/img.png", 10, "image/png")
	b := NewBucketBackend(store, BucketOptions{}, nil)

	u, err := b.SignURL(context.Background(), FileRef{Path: "a/img.png", Name: "img.png"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Contains(t, *u, "a/img.png")

	u, err = b.SignURL(context.Background(), FileRef{Path: "gone.png"})
	require.NoError(t, err)
	assert.Nil(t, u)

	store.headErr["broken.png"] = errBoom
	_, err = b.SignURL(context.Background(), FileRef{Path: "broken.png"})
	assert.ErrorIs(t, err, errBoom)
}

func TestBucketBackend_SignURLs(t *testing.T) {
	store := newFakeStore()
	store.put("one", 1, "image/png")
	store.put("two", 2, "image/png")
	b := NewBucketBackend(store, BucketOptions{SignConcurrency: 2}, nil)

	urls, err := b.SignURLs(context.Background(), []FileRef{
		{Path: "one", Name: "1.png"},
		{Path: "two", Name: "2.png"},
		{Path: "three", Name: "3.png"},
		{Path: ""},
	})
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "one")
	assert.Contains(t, urls, "two")
	assert.NotContains(t, urls, "three")
	assert.Equal(t, 3, store.heads)
}

func TestBucketBackend_SignURLsFailureAbortsBatch(t *testing.T) {
	store := newFakeStore()
	store.put("one", 1, "image/png")
	store.put("two", 2, "image/png")
	store.headErr["two"] = errBoom
	b := NewBucketBackend(store, BucketOptions{}, nil)

	urls, err := b.SignURLs(context.Background(), []FileRef{{Path: "one"}, {Path: "two"}})
	assert.Nil(t, urls)
	assert.ErrorIs(t, err, errBoom)
}

func TestBucketBackend_DeleteObjects(t *testing.T) {
	store := newFakeStore()
	store.put("one", 1, "image/png")
	b := NewBucketBackend(store, BucketOptions{}, nil)

	require.NoError(t, b.DeleteObjects(context.Background(), []string{"one"}))
	// Already gone is fine
	require.NoError(t, b.DeleteObjects(context.Background(), []string{"one"}))
	assert.Equal(t, []string{"one"}, store.deleted)

	store.deleteErr["locked"] = errBoom
	err := b.DeleteObjects(context.Background(), []string{"locked"})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "locked", be.Path)
}

func TestBucketBackend_PresignUpload(t *testing.T) {
	b := NewBucketBackend(newFakeStore(), BucketOptions{}, nil)

	u, err := b.PresignUpload(context.Background(), "uploads/o1/x.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://upload.example/uploads/o1/x.png?type=image/png", u)

	_, ok := AsUploadSigner(b)
	assert.True(t, ok)
	_, ok = AsCredentialIssuer(b)
	assert.False(t, ok)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "", contentDisposition(""))
	assert.Equal(t, `attachment; filename="report.pdf"`, contentDisposition("report.pdf"))
	assert.Equal(t, `attachment; filename="abc.txt"`, contentDisposition("a\"b\\c.txt"))
}
