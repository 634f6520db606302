package documents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestFetcher(t *testing.T, baseURL string, tokens TokenSource) *Fetcher {
	t.Helper()

	f, err := NewFetcher(&Config{
		BaseURL:    baseURL,
		ClusterID:  "c1",
		StagingDir: filepath.Join(t.TempDir(), "docs"),
	}, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return f
}

var sampleRef = domain.DocumentReference{
	DocumentID:  "d1",
	ContentHash: "h1",
	Metadata:    domain.DocumentMetadata{FileName: "a.pdf"},
}

func TestFetcher_URL(t *testing.T) {
	f := newTestFetcher(t, "https://bru-2.zeebe.camunda.io:443/", &staticTokens{})

	assert.Equal(t,
		"https://bru-2.zeebe.camunda.io:443/c1/v2/documents/d1?contentHash=h1",
		f.URL(sampleRef),
	)

	ref := domain.DocumentReference{DocumentID: "a/b c", ContentHash: "x&y=z", StoreID: "gcp"}
	assert.Equal(t,
		"https://bru-2.zeebe.camunda.io:443/c1/v2/documents/a%2Fb%20c?contentHash=x%26y%3Dz&storeId=gcp",
		f.URL(ref),
	)
}

func TestFetcher_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/c1/v2/documents/d1", r.URL.Path)
		assert.Equal(t, "h1", r.URL.Query().Get("contentHash"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte("%PDF-1.7 body"))
	}))
	defer ts.Close()

	f := newTestFetcher(t, ts.URL, &staticTokens{token: "tok"})

	path, err := f.Fetch(context.Background(), sampleRef)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.stagingDir, "a.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(data))

	entries, err := os.ReadDir(f.stagingDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFetcher_FetchTwiceIsIdempotent(t *testing.T) {
	var (
		mu   sync.Mutex
		urls []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		urls = append(urls, r.URL.String())
		mu.Unlock()
		w.Write([]byte("same bytes"))
	}))
	defer ts.Close()

	f := newTestFetcher(t, ts.URL, &staticTokens{token: "tok"})

	first, err := f.Fetch(context.Background(), sampleRef)
	require.NoError(t, err)
	firstData, err := os.ReadFile(first)
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), sampleRef)
	require.NoError(t, err)
	secondData, err := os.ReadFile(second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstData, secondData)
	require.Len(t, urls, 2)
	assert.Equal(t, urls[0], urls[1])
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"document not found"}`))
	}))
	defer ts.Close()

	f := newTestFetcher(t, ts.URL, &staticTokens{token: "tok"})

	path, err := f.Fetch(context.Background(), sampleRef)
	require.Error(t, err)
	assert.Empty(t, path)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	_, statErr := os.Stat(filepath.Join(f.stagingDir, "a.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_TokenError(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	tokenErr := errors.New("expired")
	f := newTestFetcher(t, ts.URL, &staticTokens{err: tokenErr})

	_, err := f.Fetch(context.Background(), sampleRef)
	assert.ErrorIs(t, err, tokenErr)
	assert.False(t, called)
}

func TestFetcher_StagedPath(t *testing.T) {
	f := newTestFetcher(t, "http://localhost", &staticTokens{})

	tests := []struct {
		name     string
		fileName string
		expected string
		wantErr  bool
	}{
		{"plain", "a.pdf", "a.pdf", false},
		{"directory components stripped", "../../etc/passwd", "passwd", false},
		{"windows separators", `C:\tmp\report.docx`, "report.docx", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"dot dot", "..", "", true},
		{"root", "/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := sampleRef
			ref.Metadata.FileName = tt.fileName

			path, err := f.StagedPath(ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(f.stagingDir, tt.expected), path)
		})
	}
}

func TestFetcher_Remove(t *testing.T) {
	f := newTestFetcher(t, "http://localhost", &staticTokens{})

	path := filepath.Join(f.stagingDir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, f.Remove(path))
	require.NoError(t, f.Remove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewFetcher_RequiresBaseURL(t *testing.T) {
	_, err := NewFetcher(&Config{StagingDir: t.TempDir()}, &staticTokens{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
