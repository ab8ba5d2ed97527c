package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (r *stubRenderer) Render(_ context.Context, _ string) (string, error) {
	r.calls++
	return r.html, r.err
}

func TestFetcher_TextIsCached(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("<html><body><main>" + strings.Repeat("Go engineer posting. ", 40) + "</main></body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(nil, nil, time.Minute)

	first, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	second, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Go engineer posting.")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetcher_CacheExpires(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(nil, nil, time.Minute)
	now := time.Now()
	f.now = func() time.Time { return now }

	_, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = f.Text(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetcher_ExpiredEntriesEvicted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(nil, nil, time.Minute)
	now := time.Now()
	f.now = func() time.Time { return now }

	for _, path := range []string{"/a", "/b", "/c"} {
		_, err := f.Text(context.Background(), server.URL+path)
		require.NoError(t, err)
	}
	assert.Len(t, f.cache, 3)

	now = now.Add(2 * time.Minute)
	_, err := f.Text(context.Background(), server.URL+"/d")
	require.NoError(t, err)

	assert.Len(t, f.cache, 1)
	assert.Contains(t, f.cache, server.URL+"/d")
}

func TestFetcher_BrowserFallbackForThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	renderer := &stubRenderer{html: "<html><body><main>Rendered job description with requirements</main></body></html>"}
	f := NewFetcher(nil, renderer, time.Minute)

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "Rendered job description with requirements", text)
}

func TestFetcher_BrowserFailureKeepsStaticText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main>short</main></body></html>`))
	}))
	defer server.Close()

	renderer := &stubRenderer{err: errors.New("chrome not installed")}
	f := NewFetcher(nil, renderer, time.Minute)

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "short", text)
}

func TestFetcher_HTTPErrorNotCached(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewFetcher(nil, nil, time.Minute)

	_, err := f.Text(context.Background(), server.URL)
	require.Error(t, err)
	_, err = f.Text(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
