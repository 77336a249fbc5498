package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "W3C-checklink/4.5 [4.160] libwww-perl/5.823"

// DefaultMaxBodySize caps the bytes read from one response.
const DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

// Retriever fetches and parses one document.
type Retriever interface {
	// Retrieve returns the parsed document at rawURL, or an error when the
	// URL does not yield an HTML document.
	Retrieve(ctx context.Context, rawURL string) (*Document, error)
}

// HTTPRetriever implements Retriever over net/http.
type HTTPRetriever struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookie      string
	maxBodySize int64
	timeout     time.Duration
}

// Option configures an HTTPRetriever.
type Option func(*HTTPRetriever)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(r *HTTPRetriever) {
		if client != nil {
			r.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *HTTPRetriever) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithHeaders adds request headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(r *HTTPRetriever) {
		for k, v := range headers {
			r.headers[k] = v
		}
	}
}

// WithCookie sets the Cookie header, e.g. "session=abc; theme=dark".
func WithCookie(cookie string) Option {
	return func(r *HTTPRetriever) {
		r.cookie = cookie
	}
}

// WithMaxBodySize caps the response body size.
func WithMaxBodySize(size int64) Option {
	return func(r *HTTPRetriever) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithTimeout bounds each retrieval, including reading the body.
// Zero disables the per-retrieval timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *HTTPRetriever) {
		r.timeout = d
	}
}

// NewHTTPRetriever returns an HTTPRetriever with the given options applied.
func NewHTTPRetriever(opts ...Option) *HTTPRetriever {
	r := &HTTPRetriever{
		client:      &http.Client{},
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Client returns the underlying HTTP client.
func (r *HTTPRetriever) Client() *http.Client {
	return r.client
}

// UserAgent returns the User-Agent sent with each request.
func (r *HTTPRetriever) UserAgent() string {
	return r.userAgent
}

// Retrieve implements Retriever.
func (r *HTTPRetriever) Retrieve(ctx context.Context, rawURL string) (*Document, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	target := EncodeSpaces(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, target, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w: %s has content type %q", ErrNotDocument, target, contentType)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, r.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}

	base := target
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	doc, err := Parse(body, base)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	doc.URL = rawURL
	return doc, nil
}

// EncodeSpaces percent-encodes spaces in rawURL.
func EncodeSpaces(rawURL string) string {
	return strings.ReplaceAll(rawURL, " ", "%20")
}

// isHTML reports whether a Content-Type denotes an HTML document.
// A missing Content-Type is accepted and left to the parser.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
