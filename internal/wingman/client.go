package wingman

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/obs"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

const (
	// DefaultBaseURL is the public gw2wingman site
	DefaultBaseURL = "https://gw2wingman.nevermindcreations.de"

	// DefaultGroupIcon is the placeholder icon sent for logs without a guild group
	DefaultGroupIcon = DefaultBaseURL + "/static/groupIcons/defGroup.png"
)

// Client is a gw2wingman API client with rate limiting
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRate sets the request rate limit (requests per second)
func WithRate(perSec int) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
		}
	}
}

// NewClient creates a new gw2wingman API client
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the site root used for log links and icons
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request with rate limiting
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Handle rate limiting (429): wait and retry once
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		wait := time.Second
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 && s < 30 {
			wait = time.Duration(s) * time.Second
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		retry := req.Clone(ctx)
		return c.httpClient.Do(retry)
	}

	return resp, nil
}

// get performs a GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result interface{}) error {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.doRequest(ctx, req)
	if err != nil {
		obs.ObserveUpstream(endpoint, "error", time.Since(start))
		return fmt.Errorf("%w: request %s: %v", record.ErrUpstreamUnavailable, endpoint, err)
	}
	defer resp.Body.Close()
	obs.ObserveUpstream(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d, body: %s", record.ErrUpstreamUnavailable, endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", record.ErrUpstreamUnavailable, endpoint, err)
	}

	return nil
}

// IsUpstream reports whether err came from the stats service rather than the caller
func IsUpstream(err error) bool {
	return errors.Is(err, record.ErrUpstreamUnavailable)
}
