// Package poll turns plain polling endpoints into server-sent event streams.
package poll

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stream-relay-go/internal/client"
	"stream-relay-go/internal/config"
	"stream-relay-go/internal/extract"
	"stream-relay-go/internal/metrics"
	"stream-relay-go/internal/model"
	"stream-relay-go/internal/sse"
)

// Synthesizer repeatedly fetches a target URL and republishes each response
// as one event-stream frame. One instance serves all connections; per-call
// state lives on the stack of Run.
type Synthesizer struct {
	client  *client.Client
	timeout time.Duration
	bodyMax int64
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSynthesizer creates a Synthesizer. The metrics parameter is optional;
// pass nil to disable iteration metrics.
func NewSynthesizer(c *client.Client, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Synthesizer {
	return &Synthesizer{
		client:  c,
		timeout: time.Duration(cfg.Poll.TimeoutMS) * time.Millisecond,
		bodyMax: cfg.Poll.BodyMaxBytes,
		logger:  logger.With("component", "poll_synthesizer"),
		metrics: m,
	}
}

// Run polls the target until ctx is canceled (client disconnect) or the
// sink rejects a write, emitting one frame per iteration. Failed iterations
// produce comment frames and never terminate the loop on their own.
// Iterations are paced at the request's interval; the pacing wait aborts
// immediately on cancellation, so a disconnect is honored without waiting
// out the interval.
func (s *Synthesizer) Run(ctx context.Context, req *model.TargetRequest, w *sse.Writer) {
	limiter := rate.NewLimiter(rate.Every(req.Interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.iterate(ctx, req, w); err != nil {
			// The sink is gone; the disconnect cascade is already underway.
			s.logger.Debug("poll stream closed",
				"target", req.Target.String(),
				"err", err,
			)
			return
		}
	}
}

// iterate performs one fetch-transform-frame cycle. Upstream failures are
// reported as comment frames and return nil; only sink write failures are
// returned.
func (s *Synthesizer) iterate(ctx context.Context, req *model.TargetRequest, w *sse.Writer) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Fetch(fetchCtx, req.Target.String(), nil, metrics.ModePoll)
	if err != nil {
		s.count(metrics.OutcomeUpstreamError)
		return s.comment(w, fmt.Sprintf("upstream error: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain (bounded) so the pooled connection stays reusable; the body
		// of a failed poll is never parsed.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.bodyMax))
		s.count(metrics.OutcomeBadStatus)
		return s.comment(w, fmt.Sprintf("upstream status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.bodyMax))
	if err != nil {
		s.count(metrics.OutcomeUpstreamError)
		return s.comment(w, fmt.Sprintf("upstream read error: %v", err))
	}

	s.count(metrics.OutcomeOK)
	if s.metrics != nil {
		s.metrics.FramesTotal.WithLabelValues(metrics.FrameData).Inc()
	}
	return w.Data(Payload(resp.ContentType(), body))
}

func (s *Synthesizer) comment(w *sse.Writer, text string) error {
	if s.metrics != nil {
		s.metrics.FramesTotal.WithLabelValues(metrics.FrameComment).Inc()
	}
	return w.Comment(text)
}

func (s *Synthesizer) count(outcome string) {
	if s.metrics != nil {
		s.metrics.PollIterations.WithLabelValues(outcome).Inc()
	}
}

// blobPayload wraps a non-numeric plain-text body so it is not silently dropped.
type blobPayload struct {
	B64 string `json:"b64"`
}

// Payload converts one upstream response body into the JSON payload of a
// data frame. The branching tolerates heterogeneous upstream shapes without
// schema knowledge:
//
//   - JSON array → the array itself
//   - JSON object with a "samples" array field → that array
//   - any other JSON value → numeric samples extracted from its re-encoding
//   - anything else → numeric samples from the raw text, or a base64 blob
//     when the text contains no numbers
func Payload(contentType string, body []byte) []byte {
	if isJSON(contentType) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			switch val := v.(type) {
			case []any:
				return mustMarshal(val)
			case map[string]any:
				if samples, ok := val["samples"].([]any); ok {
					return mustMarshal(samples)
				}
			}
			text := mustMarshal(v)
			return mustMarshal(extract.Samples(string(text)))
		}
		// Mislabeled JSON falls through to the plain-text path.
	}

	samples := extract.Samples(string(body))
	if len(samples) == 0 {
		return mustMarshal(blobPayload{B64: base64.StdEncoding.EncodeToString(body)})
	}
	return mustMarshal(samples)
}

// isJSON reports whether the content type denotes a JSON body.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}

// mustMarshal encodes values that are themselves products of json decoding
// or plain structs; encoding cannot fail for those.
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
