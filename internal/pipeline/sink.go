package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleSink streams rows to a writer (normally stdout) as they are
// computed. Chunks finish in arbitrary order, so rows from different
// chunks interleave; the mutex only keeps individual lines intact.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink wraps w as the live output sink.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Banner prints the per-tick timestamp banner and column header.
func (c *ConsoleSink) Banner(to time.Time, window int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\n\n*** %s ***\n\n%s\n", to.Format(time.RFC3339), csvHeader(window))
}

// Row prints one computed row.
func (c *ConsoleSink) Row(row StatRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, row.CSV())
}

// CSVSink is the durable sink: an append-only CSV file owned
// exclusively by the writer actor. Rows accumulate in an in-memory
// buffer and Append flushes that buffer to the file in one write, so
// a failed flush keeps the rows for the next attempt instead of
// dropping them.
type CSVSink struct {
	file    *os.File
	pending []StatRow
}

// OpenCSVSink opens (or creates) the CSV file at path in append mode.
// The header is written only when the file is new or empty, so rows
// accumulate across ticks and across process restarts.
func OpenCSVSink(path string, window int) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening csv sink %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv sink %q: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := fmt.Fprintln(f, csvHeader(window)); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
	}

	return &CSVSink{file: f}, nil
}

// Append buffers rows and flushes everything pending to the file.
// On error the pending rows are kept and retried on the next call.
func (s *CSVSink) Append(rows []StatRow) error {
	s.pending = append(s.pending, rows...)
	return s.Flush()
}

// Flush writes all pending rows in a single write and clears the
// buffer on success.
func (s *CSVSink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, row := range s.pending {
		buf.WriteString(row.CSV())
		buf.WriteByte('\n')
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("flushing %d rows: %w", len(s.pending), err)
	}
	s.pending = nil
	return nil
}

// Pending returns the number of buffered rows not yet flushed.
func (s *CSVSink) Pending() int { return len(s.pending) }

// Close flushes any pending rows and closes the file.
func (s *CSVSink) Close() error {
	flushErr := s.Flush()
	if err := s.file.Close(); err != nil {
		return err
	}
	return flushErr
}
