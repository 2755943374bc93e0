package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/engine"
)

const maxBodyBytes = 4 << 20

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	URL        *url.URL
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Requester issues rate-limited requests to external sources.
type Requester struct {
	Client    *http.Client
	Limiter   *engine.RateLimiter
	UserAgent string
}

// Get issues a GET request.
func (r Requester) Get(ctx context.Context, op string, target *url.URL, header http.Header) (*Response, error) {
	return r.do(ctx, op, http.MethodGet, target, nil, header)
}

// PostForm issues a form-encoded POST request.
func (r Requester) PostForm(ctx context.Context, op string, target *url.URL, form url.Values, header http.Header) (*Response, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.do(ctx, op, http.MethodPost, target, strings.NewReader(form.Encode()), header)
}

func (r Requester) do(ctx context.Context, op, method string, target *url.URL, body io.Reader, header http.Header) (*Response, error) {
	endpoint := target.Hostname()

	if r.Limiter != nil && endpoint != "" {
		allowed, _, err := r.Limiter.Allow(ctx, endpoint)
		if err != nil {
			return nil, core.TransportError(op, err)
		}
		if !allowed {
			return nil, core.ErrRateLimited
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, core.TransportError(op, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	if r.Limiter != nil && endpoint != "" {
		if err := r.Limiter.Record(ctx, endpoint); err != nil {
			return nil, core.TransportError(op, err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, core.TransportError(op, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusTooManyRequests {
		if wait := retryAfterHeader(resp); wait > 0 && r.Limiter != nil && endpoint != "" {
			_ = r.Limiter.Record429(ctx, endpoint, wait)
		}
		return nil, core.StatusError(op, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.TransportError(op, err)
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return &Response{StatusCode: resp.StatusCode, Body: data, URL: final}, nil
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed)
	}

	return 0
}

// UserAgent returns the User-Agent sent to external sources.
func UserAgent(version string) string {
	if version == "" {
		version = "1.0"
	}
	return "AgriToxInsight/" + version
}

// ParseBase parses raw as an absolute URL, falling back to fallback.
func ParseBase(raw, fallback string) *url.URL {
	if raw != "" {
		if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
			return parsed
		}
	}
	parsed, _ := url.Parse(fallback)
	return parsed
}

// JoinPath appends escaped path segments to base.
func JoinPath(base *url.URL, segments ...string) *url.URL {
	out := *base
	path := strings.TrimSuffix(out.Path, "/")
	raw := strings.TrimSuffix(out.EscapedPath(), "/")
	for _, segment := range segments {
		path += "/" + segment
		raw += "/" + url.PathEscape(segment)
	}
	out.Path = path
	out.RawPath = raw
	return &out
}

// JSONAccept returns headers asking for JSON.
func JSONAccept() http.Header {
	return http.Header{"Accept": []string{"application/json"}}
}

// HTMLAccept returns headers asking for HTML.
func HTMLAccept() http.Header {
	return http.Header{"Accept": []string{"text/html,application/xhtml+xml"}}
}
