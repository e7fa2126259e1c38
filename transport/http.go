// Package transport implements the HTTP side of coursefs: HEAD-style size
// probes and sequential GET streams against download locators.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultTimeout bounds individual requests when no client is supplied.
const DefaultTimeout = 2 * time.Minute

// Client implements [coursefs.Transport] over an *http.Client. Probe results
// are memoized per URL: the portal's files are immutable, so one HEAD per
// locator is enough for the life of the mount. Streams are never shared;
// every StreamGet is an independent request.
type Client struct {
	http    *http.Client
	headers map[string]string
	sizes   *xsync.Map[string, int64] // memoized Content-Length by URL
}

var _ coursefs.Transport = (*Client)(nil)

// NewClient creates a Client. hc may be nil, in which case a client with
// DefaultTimeout is used. headers (session cookies, auth tokens) are applied
// to every request.
func NewClient(hc *http.Client, headers map[string]string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		http:    hc,
		headers: headers,
		sizes:   xsync.NewMap[string, int64](),
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Probe returns the resource's content length via a HEAD request, or -1 when
// the server does not report one. Successful results are memoized.
func (c *Client) Probe(ctx context.Context, url string) (int64, error) {
	if size, ok := c.sizes.Load(url); ok {
		return size, nil
	}

	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}

	size := resp.ContentLength
	if size >= 0 {
		c.sizes.Store(url, size)
	}
	logger := util.GetLogger("Transport")
	logger.Debug().Str("url", url).Int64("size", size).Msg("Probed content length")
	return size, nil
}

// StreamGet opens a sequential download of the resource. The caller owns the
// returned body.
func (c *Client) StreamGet(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() // nolint:errcheck
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
