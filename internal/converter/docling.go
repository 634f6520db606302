package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultDoclingEndpoint is docling-serve's synchronous file conversion route
	DefaultDoclingEndpoint = "/v1/convert/file"
	// DefaultToFormat is the output format requested from docling
	DefaultToFormat = "md"
)

// DoclingConfig holds docling-serve client configuration
type DoclingConfig struct {
	BaseURL  string
	Endpoint string
	ToFormat string // md, text, html
	APIKey   string
	Timeout  time.Duration
}

// DoclingClient converts documents through a docling-serve instance
type DoclingClient struct {
	url      string
	toFormat string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewDoclingClient creates a docling-serve client
func NewDoclingClient(config *DoclingConfig, logger *slog.Logger) *DoclingClient {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultDoclingEndpoint
	}
	toFormat := config.ToFormat
	if toFormat == "" {
		toFormat = DefaultToFormat
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &DoclingClient{
		url:      strings.TrimRight(config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/"),
		toFormat: toFormat,
		apiKey:   config.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type convertResponse struct {
	Document struct {
		Filename    string `json:"filename"`
		MDContent   string `json:"md_content"`
		TextContent string `json:"text_content"`
		HTMLContent string `json:"html_content"`
	} `json:"document"`
	Status         string          `json:"status"`
	Errors         json.RawMessage `json:"errors"`
	ProcessingTime float64         `json:"processing_time"`
}

// Convert uploads the file at path and returns the converted content
func (c *DoclingClient) Convert(ctx context.Context, path string) (string, error) {
	body, contentType, err := c.buildForm(path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("docling request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("docling api error: %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode docling response: %w", err)
	}
	if result.Status == "failure" {
		return "", fmt.Errorf("docling conversion failed: %s", strings.TrimSpace(string(result.Errors)))
	}

	content := result.Document.MDContent
	switch c.toFormat {
	case "text":
		content = result.Document.TextContent
	case "html":
		content = result.Document.HTMLContent
	}

	c.logger.Debug("Document converted",
		slog.String("file", filepath.Base(path)),
		slog.String("status", result.Status),
		slog.Float64("processing_time", result.ProcessingTime),
		slog.Int("chars", len(content)),
	)

	return content, nil
}

func (c *DoclingClient) buildForm(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read staged file: %w", err)
	}
	if err := w.WriteField("to_formats", c.toFormat); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return body, w.FormDataContentType(), nil
}
