package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"stream-relay-go/internal/config"
	"stream-relay-go/internal/model"
	"stream-relay-go/internal/policy"
	"stream-relay-go/internal/poll"
	"stream-relay-go/internal/sse"
)

// SSEHandler synthesizes an event stream from a plain polling endpoint.
type SSEHandler struct {
	synth           *poll.Synthesizer
	allowlist       *policy.Allowlist
	defaultInterval time.Duration
	logger          *slog.Logger
}

// NewSSEHandler creates an SSEHandler.
func NewSSEHandler(synth *poll.Synthesizer, allowlist *policy.Allowlist, cfg *config.Config, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		synth:           synth,
		allowlist:       allowlist,
		defaultInterval: time.Duration(cfg.Poll.DefaultIntervalMS) * time.Millisecond,
		logger:          logger.With("component", "sse_handler"),
	}
}

// Handle serves GET /sse: validates the target, commits the event-stream
// response headers once, then hands the connection to the synthesizer
// until the client disconnects.
func (h *SSEHandler) Handle(c echo.Context) error {
	target, err := parseTarget(c)
	if target == nil {
		return err
	}

	if !h.allowlist.AllowsHost(target.Hostname()) {
		return c.String(http.StatusForbidden, "target host is not allowed")
	}

	tr := &model.TargetRequest{
		Target:   target,
		Interval: h.interval(c.QueryParam("interval")),
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, sse.MediaType)
	setRelayHeaders(res.Header())
	res.WriteHeader(http.StatusOK)
	res.Flush()

	h.logger.Debug("poll stream started",
		"target", tr.Target.String(),
		"interval_ms", tr.Interval.Milliseconds(),
	)

	h.synth.Run(c.Request().Context(), tr, sse.NewWriter(res))
	return nil
}

// interval parses the interval query parameter in milliseconds. The
// parameter is optional; garbage and non-positive values fall back to the
// configured default.
func (h *SSEHandler) interval(raw string) time.Duration {
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return h.defaultInterval
	}
	return time.Duration(ms) * time.Millisecond
}
