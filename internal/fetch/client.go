package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// Client performs HTTP GETs with browser-like headers. TLS verification
// is disabled: several upstream sources serve stale or mismatched certs.
type Client struct {
	http      *http.Client
	userAgent string
	delay     time.Duration
}

// NewClient creates a fetch client with the given timeout, User-Agent and
// per-request politeness delay.
func NewClient(timeout time.Duration, userAgent string, delay time.Duration) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
		delay:     delay,
	}
}

// Delay returns the configured politeness delay between consecutive
// requests to the same host.
func (c *Client) Delay() time.Duration {
	return c.delay
}

// Get fetches a URL and returns the decoded body as UTF-8. The charset is
// taken from the Content-Type hint with a UTF-8 fallback.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		// Undetectable charset; read raw and let downstream treat as UTF-8.
		reader = resp.Body
	}
	body, err := io.ReadAll(io.LimitReader(reader, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
