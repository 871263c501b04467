package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/clausecheck/clausecheck/internal/model"
	"github.com/clausecheck/clausecheck/internal/util"
)

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Client talks to the document conversion service, which turns PDFs and
// office documents into markdown with [[page=N]] anchors
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
	maxRetries int
}

// Result is a converted document
type Result struct {
	Markdown string `json:"markdown"`
	Pages    int    `json:"pages"`
	Source   string `json:"source"`
}

// NewClient creates a conversion client from configuration
func NewClient(cfg model.ConverterConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes == 0 {
		maxBytes = 20_000_000
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxBytes:   maxBytes,
		maxRetries: maxRetries,
	}
}

// Convert uploads a document and returns its page-anchored markdown.
// Transient failures (5xx, 429, network errors) are retried with
// exponential backoff.
func (c *Client) Convert(ctx context.Context, filename string, content []byte) (*Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("conversion service URL is not configured")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		result, err := c.convertOnce(ctx, filename, content)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			sleepFunc(backoff)
		}
	}
	return nil, fmt.Errorf("conversion failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) convertOnce(ctx context.Context, filename string, content []byte) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json, text/markdown")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: truncateBody(respBody)}
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var result Result
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("unmarshal conversion response: %w", err)
		}
		if result.Markdown == "" {
			return nil, fmt.Errorf("conversion response carries no markdown")
		}
		result.Source = filename
		return &result, nil
	}

	// Plain markdown body
	if len(respBody) == 0 {
		return nil, fmt.Errorf("empty conversion response")
	}
	return &Result{Markdown: string(respBody), Source: filename}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("conversion service returned %d: %s", e.code, e.body)
}

// isRetryable reports whether an error is worth another attempt
func isRetryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code == http.StatusTooManyRequests || (se.code >= 500 && se.code < 600)
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func truncateBody(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
