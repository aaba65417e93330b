// Package output provides event table formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-splice/internal/event"
)

// EventWriter writes events of one type in tab-delimited format.
type EventWriter struct {
	w       *bufio.Writer
	typ     event.Type
	columns []string
}

// NewEventWriter creates a new tab-delimited writer for one event type.
func NewEventWriter(w io.Writer, t event.Type) *EventWriter {
	return &EventWriter{
		w:       bufio.NewWriter(w),
		typ:     t,
		columns: event.Columns(t),
	}
}

// WriteHeader writes the header line.
func (ew *EventWriter) WriteHeader() error {
	_, err := ew.w.WriteString(strings.Join(ew.columns, "\t") + "\n")
	return err
}

// Write writes a single event.
func (ew *EventWriter) Write(r *event.Record) error {
	if r.Type != ew.typ {
		return fmt.Errorf("write %s event to %s table", r.Type, ew.typ)
	}
	_, err := ew.w.WriteString(strings.Join(r.Fields(), "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (ew *EventWriter) Flush() error {
	return ew.w.Flush()
}

// TableFileName returns the file name used for an event type's table.
func TableFileName(t event.Type) string {
	return string(t) + ".txt"
}

// TableSet writes one table file per event type into a directory.
type TableSet struct {
	dir     string
	files   map[event.Type]*os.File
	writers map[event.Type]*EventWriter
}

// CreateTables creates the output directory and one table per event type,
// each starting with its header line.
func CreateTables(dir string) (*TableSet, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	ts := &TableSet{
		dir:     dir,
		files:   make(map[event.Type]*os.File),
		writers: make(map[event.Type]*EventWriter),
	}
	for _, t := range event.Types {
		f, err := os.Create(ts.Path(t))
		if err != nil {
			ts.Close()
			return nil, fmt.Errorf("create %s table: %w", t, err)
		}
		ts.files[t] = f

		ew := NewEventWriter(f, t)
		if err := ew.WriteHeader(); err != nil {
			ts.Close()
			return nil, fmt.Errorf("write %s header: %w", t, err)
		}
		ts.writers[t] = ew
	}
	return ts, nil
}

// Path returns the table path for an event type.
func (ts *TableSet) Path(t event.Type) string {
	return filepath.Join(ts.dir, TableFileName(t))
}

// Write routes an event to the table of its type.
func (ts *TableSet) Write(r *event.Record) error {
	ew, ok := ts.writers[r.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", r.Type)
	}
	return ew.Write(r)
}

// Flush flushes every table.
func (ts *TableSet) Flush() error {
	for _, t := range event.Types {
		if ew, ok := ts.writers[t]; ok {
			if err := ew.Flush(); err != nil {
				return fmt.Errorf("flush %s table: %w", t, err)
			}
		}
	}
	return nil
}

// Close flushes and closes every table file.
func (ts *TableSet) Close() error {
	var firstErr error
	if err := ts.Flush(); err != nil {
		firstErr = err
	}
	for _, t := range event.Types {
		if f, ok := ts.files[t]; ok {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s table: %w", t, err)
			}
		}
	}
	ts.files = nil
	return firstErr
}

// multiWriter fans records out to several writers.
type multiWriter []event.RecordWriter

// MultiWriter returns a writer that duplicates every record to all writers.
func MultiWriter(writers ...event.RecordWriter) event.RecordWriter {
	return multiWriter(writers)
}

func (mw multiWriter) Write(r *event.Record) error {
	for _, w := range mw {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (mw multiWriter) Flush() error {
	for _, w := range mw {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
