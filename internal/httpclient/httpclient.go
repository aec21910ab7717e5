// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpclient builds the shared HTTP client this module's metadata
// loader and download worker issue every outbound GET through: a fixed
// user-agent, per-request timeout, and Range-header resumption support.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/useragent"
)

// Config controls the client's timeouts and identity string.
type Config struct {
	Timeout        time.Duration
	UserAgent      string
	MaxIdleConns   int
	IdleConnExpiry time.Duration
}

// DefaultConfig matches this module's default metadata-load timeout (see
// internal/config.WorkerConfig.RequestTimeout).
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		UserAgent:      useragent.Build("", ""),
		MaxIdleConns:   64,
		IdleConnExpiry: 90 * time.Second,
	}
}

// Client wraps *http.Client with this module's user-agent and error
// classification.
type Client struct {
	http *http.Client
	ua   string
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = useragent.Build("", "")
	}
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnExpiry,
	}
	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		ua: cfg.UserAgent,
	}
}

// GetText fetches url and returns its body as text, for playlist loads. A
// non-2xx response is classified via dtgerr.HTTPFailureError.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, url, 0)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &dtgerr.NetworkTimeoutError{URL: url, Err: err}
	}
	return string(body), nil
}

// GetRange issues a GET for url, resuming from byte offset when offset > 0
// (via a Range header). The caller is responsible for closing the returned
// body.
func (c *Client) GetRange(ctx context.Context, url string, offset int64) (*http.Response, error) {
	return c.do(ctx, url, offset)
}

func (c *Client) do(ctx context.Context, url string, rangeOffset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.ua)
	if rangeOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeOffset))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &dtgerr.NetworkTimeoutError{URL: url, Err: ctx.Err()}
		}
		return nil, &dtgerr.NetworkTimeoutError{URL: url, Err: err}
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &dtgerr.HTTPFailureError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", string(body)),
		}
	}

	return resp, nil
}

// SupportsResume reports whether resp declares byte-range support via
// Accept-Ranges, used by the worker to decide whether a resume token is
// worth honoring on retry.
func SupportsResume(resp *http.Response) bool {
	return resp.Header.Get("Accept-Ranges") == "bytes" || resp.StatusCode == http.StatusPartialContent
}
