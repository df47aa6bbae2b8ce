// Package service implements the core relay forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"stream-relay-go/internal/client"
	"stream-relay-go/internal/metrics"
	"stream-relay-go/internal/model"
	"stream-relay-go/internal/policy"
)

// ErrHostNotAllowed is returned when the target host is not in the allowlist.
var ErrHostNotAllowed = errors.New("target host is not allowed")

// hopByHopHeaders must never be forwarded across the relay boundary; they
// are meaningful only between adjacent connections. Both the Trailer header
// and its plural misspelling are listed because the latter appears in the
// wild.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// RelayService opens upstream connections for byte-stream relaying.
type RelayService struct {
	client    *client.Client
	allowlist *policy.Allowlist
	logger    *slog.Logger
}

// NewRelayService creates a RelayService.
func NewRelayService(c *client.Client, allowlist *policy.Allowlist, logger *slog.Logger) *RelayService {
	return &RelayService{
		client:    c,
		allowlist: allowlist,
		logger:    logger.With("component", "relay_service"),
	}
}

// Open validates the target against the host policy, fetches it, and
// returns the upstream handle with hop-by-hop headers already stripped.
// The caller owns the handle and must close its Body.
func (s *RelayService) Open(ctx context.Context, target *url.URL) (*model.UpstreamResponse, error) {
	if !s.allowlist.AllowsHost(target.Hostname()) {
		return nil, ErrHostNotAllowed
	}

	s.logger.Debug("opening relay",
		"target", target.String(),
	)

	resp, err := s.client.Fetch(ctx, target.String(), nil, metrics.ModeRelay)
	if err != nil {
		return nil, fmt.Errorf("open upstream: %w", err)
	}

	resp.Header = stripHopByHop(resp.Header)
	return resp, nil
}

// Allowlist exposes the host policy so callers sharing the service can
// reuse the same configured set.
func (s *RelayService) Allowlist() *policy.Allowlist {
	return s.allowlist
}

// stripHopByHop returns a copy of src without hop-by-hop headers, including
// any connection-scoped headers named by the Connection header itself.
func stripHopByHop(src http.Header) http.Header {
	drop := make(map[string]bool, len(hopByHopHeaders))
	for _, h := range hopByHopHeaders {
		drop[http.CanonicalHeaderKey(h)] = true
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				drop[http.CanonicalHeaderKey(name)] = true
			}
		}
	}

	dst := make(http.Header, len(src))
	for key, vals := range src {
		if drop[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = vals
	}
	return dst
}
