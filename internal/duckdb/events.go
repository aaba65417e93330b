package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-splice/internal/event"
)

// Run describes one classification run recorded in the store.
type Run struct {
	ID        string
	Source    string
	StartedAt time.Time
}

// StoredEvent is an event row read back from the store.
type StoredEvent struct {
	RunID   string
	EventID string
	Record  *event.Record
}

// BeginRun registers a new classification run for the given source (a GTF
// or gene model path) and returns its id.
func (s *Store) BeginRun(source string) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO runs (run_id, source, started_at) VALUES (?, ?, ?)`,
		id, source, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, source, started_at FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// WriteEvents batch-inserts events for a run using the Appender API.
// Records with the same event id are written once.
func (s *Store) WriteEvents(runID string, records []*event.Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(records))
	type row struct {
		id  string
		rec *event.Record
	}
	deduped := make([]row, 0, len(records))
	for _, r := range records {
		id := r.ID()
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, row{id, r})
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "splice_events")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, d := range deduped {
		r := d.rec
		if err := appender.AppendRow(
			runID, d.id, string(r.Type),
			event.JoinExons(r.Included), event.JoinExons(r.Excluded),
			anchorKey(r.Upstream), anchorKey(r.Downstream),
			r.Strand.String(), r.GeneID, r.GeneName,
			r.IncludedTranscript, r.ExcludedTranscript,
		); err != nil {
			return fmt.Errorf("append event %s: %w", d.id, err)
		}
	}

	return appender.Flush()
}

// ClearEvents removes all stored events and runs.
func (s *Store) ClearEvents() error {
	if _, err := s.db.Exec("DELETE FROM splice_events"); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs"); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

// EventsByGene returns the stored events whose gene id or gene name equals
// gene, ordered by run, event type and event id.
func (s *Store) EventsByGene(gene string) ([]StoredEvent, error) {
	rows, err := s.db.Query(`SELECT
		run_id, event_id, event_type,
		included_exons, excluded_exons, pre_exon, post_exon,
		strand, gene_id, gene_name, included_transcript, excluded_transcript
		FROM splice_events
		WHERE gene_id=? OR gene_name=?
		ORDER BY run_id, event_type, event_id`, gene, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByType returns the number of stored events per type for a run.
// An empty runID counts across all runs.
func (s *Store) CountByType(runID string) (map[event.Type]int, error) {
	query := `SELECT event_type, count(*) FROM splice_events GROUP BY event_type`
	var args []any
	if runID != "" {
		query = `SELECT event_type, count(*) FROM splice_events WHERE run_id=? GROUP BY event_type`
		args = append(args, runID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[event.Type]int)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[event.Type(t)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

// scanEvents scans rows into StoredEvent slices.
func scanEvents(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]StoredEvent, error) {
	var events []StoredEvent
	for rows.Next() {
		var runID, eventID, typ, included, excluded, pre, post, strand string
		var r event.Record

		if err := rows.Scan(
			&runID, &eventID, &typ,
			&included, &excluded, &pre, &post,
			&strand, &r.GeneID, &r.GeneName, &r.IncludedTranscript, &r.ExcludedTranscript,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		r.Type = event.Type(typ)
		if err := decodeEvent(&r, included, excluded, pre, post, strand); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", eventID, err)
		}
		events = append(events, StoredEvent{RunID: runID, EventID: eventID, Record: &r})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func decodeEvent(r *event.Record, included, excluded, pre, post, strand string) error {
	var err error
	if r.Included, err = event.ParseExonList(included); err != nil {
		return err
	}
	if r.Excluded, err = event.ParseExonList(excluded); err != nil {
		return err
	}
	if r.Upstream, err = parseAnchor(pre); err != nil {
		return err
	}
	if r.Downstream, err = parseAnchor(post); err != nil {
		return err
	}
	r.Strand, err = event.ParseStrand(strand)
	return err
}

// anchorKey renders an anchor exon, or "" when the event type has none.
func anchorKey(e event.Exon) string {
	if e.IsZero() {
		return ""
	}
	return e.String()
}

func parseAnchor(s string) (event.Exon, error) {
	if s == "" {
		return event.Exon{}, nil
	}
	return event.ParseExon(s)
}

// sinkBatchSize is the number of buffered events that triggers a write.
const sinkBatchSize = 10000

// EventSink buffers events for one run and writes them in batches.
// It satisfies event.RecordWriter.
type EventSink struct {
	store   *Store
	runID   string
	pending []*event.Record
	written map[string]bool
}

// NewEventSink creates a sink writing to the given run.
func (s *Store) NewEventSink(runID string) *EventSink {
	return &EventSink{
		store:   s,
		runID:   runID,
		written: make(map[string]bool),
	}
}

// RunID returns the run the sink writes to.
func (k *EventSink) RunID() string {
	return k.runID
}

// Write buffers r, flushing when the batch is full. Events already written
// by this sink are dropped.
func (k *EventSink) Write(r *event.Record) error {
	id := r.ID()
	if k.written[id] {
		return nil
	}
	k.written[id] = true
	k.pending = append(k.pending, r)
	if len(k.pending) >= sinkBatchSize {
		return k.Flush()
	}
	return nil
}

// Flush writes buffered events to the store.
func (k *EventSink) Flush() error {
	if len(k.pending) == 0 {
		return nil
	}
	if err := k.store.WriteEvents(k.runID, k.pending); err != nil {
		return err
	}
	k.pending = k.pending[:0]
	return nil
}
