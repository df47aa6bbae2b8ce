package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"stream-relay-go/internal/metrics"
	"stream-relay-go/internal/service"
	"stream-relay-go/internal/stream"
)

// setRelayHeaders sets the headers every relayed or synthesized response
// carries, overriding whatever upstream sent: browsers must be able to read
// the body cross-origin, and nothing the relay serves may be cached.
func setRelayHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-store")
}

// parseTarget extracts and validates the url query parameter. A non-nil
// error response has already been written when the returned URL is nil.
func parseTarget(c echo.Context) (*url.URL, error) {
	raw := c.QueryParam("url")
	if raw == "" {
		return nil, c.String(http.StatusBadRequest, "missing url parameter")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, c.String(http.StatusBadRequest, "invalid url parameter: must be an absolute URL")
	}
	return u, nil
}

// RelayHandler forwards one upstream response body verbatim to the client.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayHandler creates a RelayHandler. The metrics parameter is optional.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger, m *metrics.Metrics) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
		metrics: m,
	}
}

// Handle serves GET /proxy: opens the target URL and streams its body back,
// wiring client disconnect to upstream cancellation.
func (h *RelayHandler) Handle(c echo.Context) error {
	target, err := parseTarget(c)
	if target == nil {
		return err
	}

	ctx := c.Request().Context()
	resp, err := h.service.Open(ctx, target)
	if err != nil {
		if errors.Is(err, service.ErrHostNotAllowed) {
			return c.String(http.StatusForbidden, "target host is not allowed")
		}
		h.logger.Error("upstream unreachable",
			"target", target.String(),
			"err", err,
		)
		return c.String(http.StatusBadGateway, fmt.Sprintf("upstream fetch failed: %v", err))
	}

	res := c.Response()
	for key, vals := range resp.Header {
		for _, v := range vals {
			res.Header().Add(key, v)
		}
	}
	setRelayHeaders(res.Header())
	res.WriteHeader(resp.StatusCode)

	if resp.Body == nil {
		return nil
	}

	// The status line is already on the wire; any failure past this point
	// ends the stream rather than changing the response. Client disconnects
	// cancel the upstream read through ctx.
	written, perr := stream.Pump(ctx, res, resp.Body)
	if h.metrics != nil {
		h.metrics.RelayBytesTotal.Add(float64(written))
	}
	switch {
	case perr == nil:
	case errors.Is(perr, context.Canceled):
		h.logger.Debug("client disconnected mid-stream",
			"target", target.String(),
			"bytes", written,
		)
	default:
		h.logger.Error("streaming upstream body",
			"target", target.String(),
			"bytes", written,
			"err", perr,
		)
	}

	return nil
}
