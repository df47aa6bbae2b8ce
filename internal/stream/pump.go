// Package stream moves bytes from an upstream body to a client sink.
package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
)

const chunkSize = 32 * 1024

// Pump drains src into dst chunk by chunk until src is exhausted, dst
// rejects a write, or ctx is canceled. Byte order is preserved; chunk
// boundaries are not. Cancellation closes src (at most once) so the
// upstream connection is torn down promptly instead of leaking. If dst
// implements http.Flusher each chunk is flushed as it is written.
//
// Pump returns the number of bytes written and the error that stopped it:
// nil on clean EOF, ctx.Err() on cancellation, otherwise the read or write
// error. Callers log the error and treat every outcome as end of stream.
func Pump(ctx context.Context, dst io.Writer, src io.ReadCloser) (int64, error) {
	var closeOnce sync.Once
	closeSrc := func() { closeOnce.Do(func() { _ = src.Close() }) }

	// Closing the source unblocks a pending Read when the client goes away.
	stop := context.AfterFunc(ctx, closeSrc)
	defer stop()
	defer closeSrc()

	var flusher http.Flusher
	if f, ok := dst.(http.Flusher); ok {
		flusher = f
	}

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, rerr
		}
	}
}
