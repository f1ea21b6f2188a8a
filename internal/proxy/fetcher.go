package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent       = "TaskNova-JSON-Proxy/1.0"
	acceptHeader    = "application/json,text/plain,*/*"
	defaultTimeout  = 15 * time.Second
	MaxResponseSize = 10 << 20
)

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrForbiddenDomain = errors.New("domain not allowed")
	ErrTooLarge        = errors.New("upstream response too large")
)

// UpstreamError is a non-2xx answer from the remote host.
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Failed to fetch JSON: %d %s", e.StatusCode, e.Status)
}

// Fetcher downloads allow-listed remote documents. Redirects are never
// followed by the client; Fetch follows at most one 302/303 itself.
type Fetcher struct {
	client  *http.Client
	allowed []string
}

func NewFetcher(allowed []string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Fetcher{client: &c, allowed: append([]string(nil), allowed...)}
}

func (f *Fetcher) AllowedDomains() []string {
	return append([]string(nil), f.allowed...)
}

// Allowed reports whether host equals an allow-listed domain or is a
// subdomain of one.
func (f *Fetcher) Allowed(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, d := range f.allowed {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (f *Fetcher) check(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, ErrInvalidURL
	}
	if !f.Allowed(u.Hostname()) {
		return nil, ErrForbiddenDomain
	}
	return u, nil
}

// Fetch returns the body of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := f.check(rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: statusText(resp)}
		}
		next, err := u.Parse(loc)
		if err != nil {
			return nil, ErrInvalidURL
		}
		if next, err = f.check(next.String()); err != nil {
			return nil, err
		}
		if resp, err = f.get(ctx, next); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, ErrTooLarge
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	return f.client.Do(req)
}

func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}
