// Package logsink is the host-facing build log: an append-only stream of
// human-readable lines. Every entry is written whole, so concurrent
// invocations sharing one stream never interleave partial lines.
package logsink

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Sink receives one entry per pipeline stage.
type Sink interface {
	Println(line string)
}

// Writer is a Sink over an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Println writes line followed by a newline in a single Write call. A
// multi-line entry stays contiguous.
func (s *Writer) Println(line string) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(buf)
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) Println(string) {}

// Recorder keeps lines in memory and optionally forwards them.
type Recorder struct {
	mu    sync.Mutex
	lines []string
	next  Sink
}

// NewRecorder returns a Recorder that forwards to next, which may be nil.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Println(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Println(line)
	}
}

// Lines returns a copy of everything recorded so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// String joins the recorded lines with newlines.
func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}

// LineWriter adapts a Sink to io.Writer: bytes are buffered until a newline
// and each complete line becomes one Println. Call Flush after the producer
// is done to emit an unterminated tail.
type LineWriter struct {
	mu   sync.Mutex
	sink Sink
	buf  bytes.Buffer
	mask func(string) string
}

// NewLineWriter returns a LineWriter. mask, if not nil, is applied to every
// line before it reaches the sink.
func NewLineWriter(sink Sink, mask func(string) string) *LineWriter {
	return &LineWriter{sink: sink, mask: mask}
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	for {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(lw.buf.Next(i + 1))
		lw.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (lw *LineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.buf.Len() == 0 {
		return
	}
	lw.emit(lw.buf.String())
	lw.buf.Reset()
}

func (lw *LineWriter) emit(line string) {
	if lw.mask != nil {
		line = lw.mask(line)
	}
	lw.sink.Println(line)
}
