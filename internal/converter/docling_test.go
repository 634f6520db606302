package converter_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/zeebe-docling-worker/internal/converter"
)

func stagedFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDoclingClient_Convert(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convert/file", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get("X-Api-Key"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "md", r.FormValue("to_formats"))

		file, header, err := r.FormFile("files")
		if assert.NoError(t, err) {
			defer file.Close()
			assert.Equal(t, "a.pdf", header.Filename)
			data, _ := io.ReadAll(file)
			assert.Equal(t, "%PDF", string(data))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"document": map[string]interface{}{"filename": "a.pdf", "md_content": "# Title"},
			"status":   "success",
		})
	}))
	defer ts.Close()

	client := converter.NewDoclingClient(&converter.DoclingConfig{BaseURL: ts.URL + "/", APIKey: "k1"}, discardLogger())

	out, err := client.Convert(context.Background(), stagedFile(t, "a.pdf", "%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestDoclingClient_TextFormat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text", r.FormValue("to_formats"))
		assert.Empty(t, r.Header.Get("X-Api-Key"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"document": map[string]interface{}{"text_content": "Title"},
			"status":   "success",
		})
	}))
	defer ts.Close()

	client := converter.NewDoclingClient(&converter.DoclingConfig{BaseURL: ts.URL, ToFormat: "text"}, discardLogger())

	out, err := client.Convert(context.Background(), stagedFile(t, "a.docx", "x"))
	require.NoError(t, err)
	assert.Equal(t, "Title", out)
}

func TestDoclingClient_ErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errText string
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"detail":"unsupported format"}`))
			},
			errText: `docling api error: 422 {"detail":"unsupported format"}`,
		},
		{
			name: "failure status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"failure","errors":["pdf is encrypted"]}`))
			},
			errText: "pdf is encrypted",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			errText: "failed to decode docling response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			client := converter.NewDoclingClient(&converter.DoclingConfig{BaseURL: ts.URL}, discardLogger())

			_, err := client.Convert(context.Background(), stagedFile(t, "a.pdf", "%PDF"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestDoclingClient_MissingFile(t *testing.T) {
	client := converter.NewDoclingClient(&converter.DoclingConfig{BaseURL: "http://localhost"}, discardLogger())

	_, err := client.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open staged file")
}

func TestConverterFunc(t *testing.T) {
	var c converter.Converter = converter.ConverterFunc(func(ctx context.Context, path string) (string, error) {
		return "converted " + filepath.Base(path), nil
	})

	out, err := c.Convert(context.Background(), "/tmp/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "converted a.pdf", out)
}
