// Package upstream is the outbound HTTP client used by sources.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultRetryBackoff = 250 * time.Millisecond
	maxBodyBytes        = 16 << 20
	errorBodySnippet    = 512
)

// StatusError is returned for upstream responses other than 200 OK.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, Snippet(e.Body, errorBodySnippet))
}

// Snippet trims b and cuts it to at most max bytes for logs and error details.
func Snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type Options struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts for transient failures.
	Retries int
	// RetryBackoff is the initial wait between attempts.
	RetryBackoff time.Duration
	UserAgent    string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type Client struct {
	http         *http.Client
	timeout      time.Duration
	retries      int
	retryBackoff time.Duration
	userAgent    string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		timeout:      opts.Timeout,
		retries:      opts.Retries,
		retryBackoff: opts.RetryBackoff,
		userAgent:    opts.UserAgent,
	}
}

// Get fetches rawURL with query appended and returns the body of a 200
// response. Any other status surfaces as *StatusError. Transport failures
// and 502/503/504 are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	target := u.String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBackoff

	return backoff.Retry(ctx, func() ([]byte, error) {
		return c.do(ctx, target)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithMaxElapsedTime(0),
	)
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	serr := &StatusError{
		Method:     req.Method,
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if retryableStatus(resp.StatusCode) {
		return nil, serr
	}
	return nil, backoff.Permanent(serr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
