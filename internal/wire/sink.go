package wire

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/wayseat/internal/logger"
)

// Sink receives the events a compositor sends to one client.
type Sink interface {
	WriteMessage(m Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(m Message) error

func (f SinkFunc) WriteMessage(m Message) error {
	return f(m)
}

// Discard drops every message.
var Discard Sink = SinkFunc(func(Message) error { return nil })

// StreamSink encodes messages onto a byte stream through an outbound buffer.
// File descriptors are not representable on a plain stream and are dropped.
type StreamSink struct {
	out *BufferedWriter
}

// NewStreamSink buffers up to maxSize bytes and, when maxDelay is positive,
// flushes on its own after maxDelay.
func NewStreamSink(w io.Writer, maxDelay time.Duration, maxSize int) *StreamSink {
	return &StreamSink{out: NewBufferedWriter(w, maxDelay, maxSize)}
}

func (s *StreamSink) WriteMessage(m Message) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("failed to buffer message: %w", err)
	}
	return nil
}

// Flush writes out everything buffered so far.
func (s *StreamSink) Flush() error {
	return s.out.Flush()
}

// Close flushes and stops the auto-flush loop.
func (s *StreamSink) Close() error {
	return s.out.Close()
}

// BufferedWriter implements a write buffer with optional automatic flushing
type BufferedWriter struct {
	w         io.Writer
	buf       []byte
	mu        sync.Mutex
	flushChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	maxDelay  time.Duration
	maxSize   int

	// flushErr is the first background flush failure, reported by Close.
	flushErr error
}

// NewBufferedWriter creates a new buffered writer. With a positive maxDelay
// a background loop flushes pending data after at most maxDelay.
func NewBufferedWriter(w io.Writer, maxDelay time.Duration, maxSize int) *BufferedWriter {
	if maxSize <= 0 {
		maxSize = 4096
	}
	bw := &BufferedWriter{
		w:         w,
		buf:       make([]byte, 0, maxSize),
		flushChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
		maxDelay:  maxDelay,
		maxSize:   maxSize,
	}

	if maxDelay > 0 {
		go bw.flushLoop()
	}
	return bw
}

// Write implements io.Writer
func (bw *BufferedWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	// If adding this data would exceed maxSize, flush first
	if len(bw.buf)+len(p) > bw.maxSize {
		if err := bw.flushLocked(); err != nil {
			return 0, err
		}
	}

	bw.buf = append(bw.buf, p...)

	// Schedule flush if this is the first data
	if bw.maxDelay > 0 && len(bw.buf) == len(p) {
		select {
		case bw.flushChan <- struct{}{}:
		default:
		}
	}

	return len(p), nil
}

// Buffered returns the number of bytes waiting to be flushed.
func (bw *BufferedWriter) Buffered() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buf)
}

// Flush forces an immediate flush of the buffer
func (bw *BufferedWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// flushLocked flushes the buffer (caller must hold mutex)
func (bw *BufferedWriter) flushLocked() error {
	if len(bw.buf) == 0 {
		return nil
	}

	_, err := bw.w.Write(bw.buf)
	bw.buf = bw.buf[:0]

	if flusher, ok := bw.w.(interface{ Flush() error }); ok && err == nil {
		err = flusher.Flush()
	}

	return err
}

// flushLoop runs in a goroutine to handle periodic flushing
func (bw *BufferedWriter) flushLoop() {
	timer := time.NewTimer(bw.maxDelay)
	timer.Stop()

	for {
		select {
		case <-bw.done:
			timer.Stop()
			return
		case <-bw.flushChan:
			timer.Reset(bw.maxDelay)
		case <-timer.C:
			if err := bw.Flush(); err != nil {
				logger.Warn("Background flush failed", "err", err)
				bw.mu.Lock()
				if bw.flushErr == nil {
					bw.flushErr = err
				}
				bw.mu.Unlock()
			}
		}
	}
}

// Close flushes any remaining data and stops the flush loop. A failed
// background flush is reported here if nothing else failed.
func (bw *BufferedWriter) Close() error {
	bw.closeOnce.Do(func() { close(bw.done) })

	bw.mu.Lock()
	defer bw.mu.Unlock()
	if err := bw.flushLocked(); err != nil {
		return err
	}
	return bw.flushErr
}
