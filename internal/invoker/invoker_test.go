package invoker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMockService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPInvoker_Call(t *testing.T) {
	server := setupMockService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/GetFilesInfo", r.URL.Path)
		assert.Equal(t, "defaultClient", r.Header.Get(HeaderClientCode))
		assert.Equal(t, "catalog", r.Header.Get(HeaderCallerService))

		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a/b.png"}, body["paths"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"a/b.png":{"ContentLength":10}}`))
	})

	inv, err := NewHTTPInvoker(server.URL+"/", time.Second, testLogger())
	require.NoError(t, err)

	ctx := WithCaller(context.Background(), Caller{ClientCode: "defaultClient", ServiceName: "catalog"})
	resp, err := inv.Call(ctx, "storage", "GetFilesInfo", map[string]any{"paths": []string{"a/b.png"}})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.False(t, resp.Empty())

	var out map[string]map[string]int
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, 10, out["a/b.png"]["ContentLength"])
}

func TestHTTPInvoker_ErrorStatusIsNotAnError(t *testing.T) {
	server := setupMockService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	})

	inv, err := NewHTTPInvoker(server.URL, time.Second, testLogger())
	require.NoError(t, err)

	resp, err := inv.Call(context.Background(), "storage", "GetSignedFiles", nil)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, resp.Empty())
}

func TestHTTPInvoker_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	inv, err := NewHTTPInvoker(url, time.Second, testLogger())
	require.NoError(t, err)

	_, err = inv.Call(context.Background(), "storage", "DeleteFiles", map[string]any{})
	assert.Error(t, err)
}

func TestHTTPInvoker_NonJSONBody(t *testing.T) {
	server := setupMockService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	})

	inv, err := NewHTTPInvoker(server.URL, time.Second, testLogger())
	require.NoError(t, err)

	_, err = inv.Call(context.Background(), "storage", "GetFilesInfo", nil)
	assert.Error(t, err)
}

func TestHTTPInvoker_NonJSONErrorStatusKeepsStatus(t *testing.T) {
	server := setupMockService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	inv, err := NewHTTPInvoker(server.URL, time.Second, testLogger())
	require.NoError(t, err)

	resp, err := inv.Call(context.Background(), "storage", "GetFilesInfo", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.True(t, resp.Empty())
}

func TestNewHTTPInvoker_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPInvoker("  ", 0, nil)
	assert.Error(t, err)
}

func TestCallerFromContext(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), Caller{ClientCode: "c"})
	c, ok := CallerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "c", c.ClientCode)
}
