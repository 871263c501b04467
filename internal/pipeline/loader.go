package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/clausecheck/clausecheck/internal/util"
)

// loaderUserAgent identifies remote document fetches
const loaderUserAgent = "clausecheck/0.1"

// Loader reads document bytes from a local path or an http(s) URL
type Loader struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	maxBytes   int64
}

// NewLoader creates a loader with the given fetch limits
func NewLoader(timeout time.Duration, maxBytes int64) *Loader {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if maxBytes == 0 {
		maxBytes = 20_000_000
	}
	return &Loader{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots:   util.NewRobotsChecker(loaderUserAgent, timeout),
		maxBytes: maxBytes,
	}
}

// Source is a loaded document ready for conversion
type Source struct {
	Name    string
	Content []byte
	Remote  bool
}

// Load reads the referenced document. References starting with http:// or
// https:// are fetched with a size cap; everything else is a local path.
func (l *Loader) Load(ctx context.Context, ref string) (*Source, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return l.fetch(ctx, ref)
	}

	content, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &Source{Name: filepath.Base(ref), Content: content}, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Source, error) {
	allowed, crawlDelay, err := l.robots.CanFetch(ctx, rawURL)
	if err == nil && !allowed {
		return nil, fmt.Errorf("fetch disallowed by robots.txt: %s", rawURL)
	}
	if crawlDelay > 0 {
		timer := time.NewTimer(crawlDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf,application/octet-stream,text/markdown,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", loaderUserAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Source{
		Name:    documentName(resp.Request.URL.String()),
		Content: body,
		Remote:  true,
	}, nil
}

// documentName derives a filename from a URL's last path segment
func documentName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	name := path.Base(strings.Trim(parsed.Path, "/"))
	if name == "" || name == "." {
		return parsed.Host
	}
	return name
}
