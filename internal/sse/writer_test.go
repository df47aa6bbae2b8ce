package sse

import (
	"bytes"
	"net/http/httptest"
	"testing"
)

func TestWriter_Data(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Data([]byte("[1,2,3]")); err != nil {
		t.Fatalf("Data() error = %v", err)
	}

	want := "data: [1,2,3]\n\n"
	if buf.String() != want {
		t.Errorf("frame = %q, want %q", buf.String(), want)
	}
}

func TestWriter_Comment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Comment("upstream status 503"); err != nil {
		t.Fatalf("Comment() error = %v", err)
	}

	want := ": upstream status 503\n\n"
	if buf.String() != want {
		t.Errorf("frame = %q, want %q", buf.String(), want)
	}
}

func TestWriter_FramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	_ = w.Data([]byte("[1]"))
	_ = w.Comment("pause")
	_ = w.Data([]byte("[2]"))

	want := "data: [1]\n\n: pause\n\ndata: [2]\n\n"
	if buf.String() != want {
		t.Errorf("stream = %q, want %q", buf.String(), want)
	}
}

func TestWriter_FlushesResponseRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	if err := w.Data([]byte("[]")); err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	if !rec.Flushed {
		t.Error("writer did not flush after the frame")
	}
}
