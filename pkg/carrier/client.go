// Package carrier provides a client for the carrier tracking API.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// PackagePath is the location of the per-package object in a track response.
const PackagePath = "trackResponse.shipment.0.package.0"

// DefaultBaseURL is the tracking API host.
const DefaultBaseURL = "https://excel-api-0x2r.onrender.com"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 4 << 20

// Client defines the carrier tracking operations.
type Client interface {
	// Track fetches the package payload for one tracking number. It returns
	// (nil, nil) when the carrier answers but holds no package data.
	Track(ctx context.Context, identifier string) (json.RawMessage, error)
}

// Option configures the carrier client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing or a proxy).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimiter caps the request rate across every caller sharing the client.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a new carrier tracking client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   DefaultBaseURL,
		userAgent: "track-cli/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Track issues a single GET /track/{identifier}. There is no retry: a failed
// attempt is reported to the caller as is.
func (c *httpClient) Track(ctx context.Context, identifier string) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "carrier: rate limiter wait")
		}
	}

	reqURL := fmt.Sprintf("%s/track/%s", c.baseURL, url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "carrier: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "carrier: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "carrier: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return PackageFromBody(body)
}

// PackageFromBody extracts the first package of the first shipment from a
// track response body. A well-formed body without that path yields (nil, nil).
func PackageFromBody(body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, &DecodeError{Err: eris.New("carrier: response is not valid JSON")}
	}

	pkg := gjson.GetBytes(body, PackagePath)
	if !pkg.Exists() || !pkg.IsObject() {
		return nil, nil
	}
	return json.RawMessage(pkg.Raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
