// Package fetch retrieves page HTML two ways: a plain HTTP GET for static
// sites, and a headless-browser render for JavaScript shells. Callers start
// with Simple and escalate to Rendered only when the cheap path comes back
// empty or blocked.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SimpleTimeout bounds one plain HTTP fetch.
const SimpleTimeout = 20 * time.Second

// DesktopUserAgent is sent on plain fetches. A realistic browser string keeps
// basic bot filters from serving stripped-down pages.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a response is read. Contact pages are small;
// anything past this is tracking payload or an asset mislabeled as HTML.
const maxBodyBytes = 8 << 20

// Result holds one fetched page.
type Result struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	// Frames carries same-origin iframe HTML harvested during a browser
	// render, scanned alongside the main document.
	Frames []string
	// ShadowHTML carries open shadow-root markup from the same render.
	ShadowHTML []string
}

// Error reports a failed fetch.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures plain fetches.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// DefaultOptions returns the production fetch settings.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   SimpleTimeout,
		UserAgent: DesktopUserAgent,
	}
}

// Simple retrieves a page with a single HTTP GET. Non-HTML content types are
// rejected so binary assets never reach the decoder. The Result is returned
// alongside the error for non-2xx statuses so callers can still run blocked
// detection on the body.
func Simple(ctx context.Context, rawURL string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, &Error{URL: rawURL, Message: "non-HTML content type " + contentType}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "reading body", Cause: err}
	}

	result := &Result{
		URL:         rawURL,
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return result, nil
}

// isHTMLContentType accepts HTML and XML variants. The empty header and
// text/plain are also let through: misconfigured small-business servers
// serve contact pages under both, and those are exactly the sites this
// scanner targets. Binary types still stop here so assets never reach the
// decoder.
func isHTMLContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain", "application/xml", "text/xml":
		return true
	}
	return false
}
