// Package documents downloads documents referenced by job variables from the
// cluster's document store and stages them on local disk.
package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

// TokenSource yields the bearer token sent with each download
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds fetcher configuration
type Config struct {
	BaseURL    string // e.g. https://bru-2.zeebe.camunda.io:443
	ClusterID  string
	StagingDir string
	Timeout    time.Duration
}

// StatusError is returned when the document store answers with a non-2xx status
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document store returned %d for %s", e.StatusCode, e.URL)
}

// Fetcher downloads documents into the staging directory
type Fetcher struct {
	baseURL    string
	clusterID  string
	stagingDir string
	tokens     TokenSource
	client     *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. The staging directory is created if missing.
func NewFetcher(config *Config, tokens TokenSource, logger *slog.Logger) (*Fetcher, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("documents base url is required")
	}
	stagingDir := config.StagingDir
	if stagingDir == "" {
		stagingDir = "./docs"
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Fetcher{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		clusterID:  config.ClusterID,
		stagingDir: stagingDir,
		tokens:     tokens,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// URL builds the download address of ref
func (f *Fetcher) URL(ref domain.DocumentReference) string {
	q := url.Values{}
	q.Set("contentHash", ref.ContentHash)
	if ref.StoreID != "" {
		q.Set("storeId", ref.StoreID)
	}
	return fmt.Sprintf("%s/%s/v2/documents/%s?%s",
		f.baseURL,
		url.PathEscape(f.clusterID),
		url.PathEscape(ref.DocumentID),
		q.Encode(),
	)
}

// StagedPath returns where ref is written, rejecting names that escape the staging dir
func (f *Fetcher) StagedPath(ref domain.DocumentReference) (string, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(ref.Metadata.FileName, "\\", "/")))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("unusable file name %q", ref.Metadata.FileName)
	}
	return filepath.Join(f.stagingDir, name), nil
}

// Fetch downloads ref and returns the local path of the staged file.
// Fetching the same reference again overwrites the file with the same bytes.
func (f *Fetcher) Fetch(ctx context.Context, ref domain.DocumentReference) (string, error) {
	path, err := f.StagedPath(ref)
	if err != nil {
		return "", err
	}

	token, err := f.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	target := f.URL(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build document request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download document %s: %w", ref.DocumentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	n, err := writeAtomic(path, resp.Body)
	if err != nil {
		return "", err
	}

	f.logger.Info("Document staged",
		slog.String("document_id", ref.DocumentID),
		slog.String("path", path),
		slog.Int64("bytes", n),
		slog.Duration("duration", time.Since(start)),
	)

	return path, nil
}

// Remove deletes a staged file; a missing file is not an error
func (f *Fetcher) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}
	return nil
}

func writeAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write document body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to stage document: %w", err)
	}
	return n, nil
}
