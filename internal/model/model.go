// Package model defines shared types for the relay.
package model

import (
	"io"
	"net/http"
	"net/url"
	"time"
)

// TargetRequest is a validated client request for one relay or poll session.
type TargetRequest struct {
	// Target is the upstream URL, already parsed and absolute.
	Target *url.URL
	// Interval is the poll spacing; meaningful only in poll mode.
	Interval time.Duration
}

// UpstreamResponse is the handle returned by one upstream fetch. The
// endpoint that initiated the fetch owns it exclusively and must close
// Body on every exit path.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ContentType returns the upstream Content-Type header value.
func (r *UpstreamResponse) ContentType() string {
	return r.Header.Get("Content-Type")
}
