// Package client performs outbound HTTP fetches against target URLs.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"stream-relay-go/internal/config"
	"stream-relay-go/internal/metrics"
	"stream-relay-go/internal/model"
)

const userAgent = "stream-relay-go/1.0"

// Client issues single GET requests to upstream data sources.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a Client with connection pooling and a finite dial timeout.
// The overall request timeout comes from upstream.relay_timeout_seconds;
// zero leaves streaming responses unbounded (poll mode bounds each fetch
// with a per-request context deadline instead). The metrics parameter is
// optional; pass nil to disable upstream metrics recording.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.RelayTimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Fetch issues one GET to rawURL with the given extra headers and returns
// the response handle. The caller owns the handle and must close its Body.
// The provided context controls the lifetime of the request: when it is
// canceled (client disconnect, poll timeout) the upstream connection is
// torn down. A returned error always means no handle was produced; errors
// while draining an accepted body surface later, from the Body reader.
func (c *Client) Fetch(ctx context.Context, rawURL string, header http.Header, mode string) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for key, vals := range header {
		req.Header[key] = vals
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("upstream fetch",
		"url", rawURL,
		"mode", mode,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(mode).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(mode).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(mode, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
