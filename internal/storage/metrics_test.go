package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedBackend_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	store := newFakeStore()
	store.put("one", 1, "image/png")
	store.headErr["bad"] = errBoom
	b := Instrument(NewBucketBackend(store, BucketOptions{}, nil), observer)

	_, err = b.SignURLs(context.Background(), []FileRef{{Path: "one"}})
	require.NoError(t, err)
	_, err = b.SignURLs(context.Background(), []FileRef{{Path: "bad"}})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(observer.items.WithLabelValues("bucket", "sign")))
	assert.Equal(t, 1.0, testutil.ToFloat64(observer.errors.WithLabelValues("bucket", "sign")))
	assert.Equal(t, KindBucket, b.Kind())
}

func TestNewPrometheusObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("dup", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("dup", reg)
	require.NoError(t, err)

	second.RecordOperation(KindDelegated, "delete", 0, 3, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(first.items.WithLabelValues("delegated", "delete")))
}

func TestInstrument_KeepsCapabilities(t *testing.T) {
	wrapped := Instrument(NewDelegatedBackend(&fakeInvoker{}, "svc", nil), nil)

	_, ok := AsCredentialIssuer(wrapped)
	assert.True(t, ok)
	_, ok = AsUploadSigner(wrapped)
	assert.False(t, ok)

	require.NoError(t, wrapped.DeleteObjects(context.Background(), nil))
}
