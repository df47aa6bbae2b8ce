package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// chunkSource yields fixed chunks then EOF, counting Close calls.
type chunkSource struct {
	chunks [][]byte
	idx    int
	closes atomic.Int32
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if s.idx >= len(s.chunks) {
		return 0, io.EOF
	}
	n := copy(p, s.chunks[s.idx])
	s.idx++
	return n, nil
}

func (s *chunkSource) Close() error {
	s.closes.Add(1)
	return nil
}

// blockingSource blocks every Read until the source is closed, mimicking an
// upstream that never sends another byte.
type blockingSource struct {
	unblock chan struct{}
	once    sync.Once
	closes  atomic.Int32
}

func newBlockingSource() *blockingSource {
	return &blockingSource{unblock: make(chan struct{})}
}

func (s *blockingSource) Read(p []byte) (int, error) {
	<-s.unblock
	return 0, errors.New("read on closed source")
}

func (s *blockingSource) Close() error {
	s.closes.Add(1)
	s.once.Do(func() { close(s.unblock) })
	return nil
}

// failingSink rejects every write.
type failingSink struct{}

func (failingSink) Write(p []byte) (int, error) {
	return 0, errors.New("sink closed")
}

func TestPump_CopiesInOrder(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{[]byte("hello"), []byte(" "), []byte("world")}}
	var dst bytes.Buffer

	written, err := Pump(context.Background(), &dst, src)
	if err != nil {
		t.Fatalf("Pump() error = %v", err)
	}
	if dst.String() != "hello world" {
		t.Errorf("dst = %q, want %q", dst.String(), "hello world")
	}
	if written != int64(len("hello world")) {
		t.Errorf("written = %d, want %d", written, len("hello world"))
	}
	if got := src.closes.Load(); got != 1 {
		t.Errorf("source closed %d times, want 1", got)
	}
}

func TestPump_CancelClosesSourceOnce(t *testing.T) {
	src := newBlockingSource()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Pump(ctx, io.Discard, src)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Pump() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not stop after cancellation")
	}

	if got := src.closes.Load(); got != 1 {
		t.Errorf("source closed %d times, want exactly 1", got)
	}
}

func TestPump_SinkErrorStops(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{[]byte("a"), []byte("b"), []byte("c")}}

	_, err := Pump(context.Background(), failingSink{}, src)
	if err == nil {
		t.Fatal("Pump() error = nil, want sink write error")
	}
	if got := src.closes.Load(); got != 1 {
		t.Errorf("source closed %d times, want 1", got)
	}
}

func TestPump_ReadErrorReturned(t *testing.T) {
	readErr := errors.New("connection reset")
	src := nopCloser{io.MultiReader(
		bytes.NewReader([]byte("partial")),
		errReader{readErr},
	)}
	var dst bytes.Buffer

	written, err := Pump(context.Background(), &dst, src)
	if !errors.Is(err, readErr) {
		t.Errorf("Pump() error = %v, want %v", err, readErr)
	}
	if dst.String() != "partial" {
		t.Errorf("dst = %q, want %q", dst.String(), "partial")
	}
	if written != int64(len("partial")) {
		t.Errorf("written = %d, want %d", written, len("partial"))
	}
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

type errReader struct{ err error }

func (r errReader) Read(p []byte) (int, error) { return 0, r.err }

func TestPump_FlushesFlushableSink(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{[]byte("chunk")}}
	rec := httptest.NewRecorder()

	if _, err := Pump(context.Background(), rec, src); err != nil {
		t.Fatalf("Pump() error = %v", err)
	}
	if !rec.Flushed {
		t.Error("flushable sink was not flushed")
	}
	if rec.Body.String() != "chunk" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "chunk")
	}
}
