package service

import (
	"context"
	"testing"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelete_Twice(t *testing.T) {
	repo := &memRepo{}
	id := seed(repo, "p1", "a.png", "files/a.png", clock)
	backend := newFakeBackend(storage.KindDelegated)
	var deleted *domain.Attachment
	svc := newTestService(repo, backend, Options{}, Hooks{
		PostDelete: func(_ context.Context, record *domain.Attachment) error {
			deleted = record
			return nil
		},
	})

	got, err := svc.Delete(context.Background(), "p1", id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Empty(t, repo.rows)
	assert.Equal(t, [][]string{{"files/a.png"}}, backend.deleteCalls)
	require.NotNil(t, deleted)
	assert.Equal(t, "files/a.png", deleted.Path)

	_, err = svc.Delete(context.Background(), "p1", id)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Len(t, backend.deleteCalls, 1)
}

func TestDelete_BackendFailureAfterRowRemoval(t *testing.T) {
	repo := &memRepo{}
	id := seed(repo, "p1", "a.png", "files/a.png", clock)
	backend := newFakeBackend(storage.KindBucket)
	backend.deleteErr = &storage.BackendError{Op: "delete", Path: "files/a.png", Err: errBoom}
	svc := newTestService(repo, backend, Options{}, Hooks{})

	_, err := svc.Delete(context.Background(), "p1", id)
	assert.Equal(t, KindBackend, KindOf(err))

	_, err = svc.Get(context.Background(), "p1", id)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDelete_WithoutPathSkipsBackend(t *testing.T) {
	repo := &memRepo{}
	id := seed(repo, "p1", "a.png", "", clock)
	backend := newFakeBackend(storage.KindDelegated)
	svc := newTestService(repo, backend, Options{}, Hooks{})

	_, err := svc.Delete(context.Background(), "p1", id)
	require.NoError(t, err)
	assert.Empty(t, backend.deleteCalls)
}

func TestDelete_Failures(t *testing.T) {
	t.Run("remove fails", func(t *testing.T) {
		repo := &memRepo{}
		id := seed(repo, "p1", "a.png", "a", clock)
		repo.removeErr = errBoom
		backend := newFakeBackend(storage.KindDelegated)
		svc := newTestService(repo, backend, Options{}, Hooks{})

		_, err := svc.Delete(context.Background(), "p1", id)
		assert.Equal(t, KindPersistence, KindOf(err))
		assert.Empty(t, backend.deleteCalls)
	})

	t.Run("post delete fails", func(t *testing.T) {
		repo := &memRepo{}
		id := seed(repo, "p1", "a.png", "a", clock)
		svc := newTestService(repo, newFakeBackend(storage.KindDelegated), Options{}, Hooks{
			PostDelete: func(context.Context, *domain.Attachment) error { return errBoom },
		})

		_, err := svc.Delete(context.Background(), "p1", id)
		assert.Equal(t, KindHook, KindOf(err))
		assert.Empty(t, repo.rows)
	})
}
