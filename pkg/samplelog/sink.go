package samplelog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// TimeFormat is the timestamp layout used in the text log.
const TimeFormat = "2006-01-02T15:04:05.000000"

// PersistenceError is returned when a sample could not be stored.
type PersistenceError struct {
	Sink string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist sample to %s: %v", e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// A Sink stores samples durably.
type Sink interface {
	Append(Sample) error
	Close() error
}

// FormatLine renders a sample as one line of the text log, without
// the trailing newline.
func FormatLine(s Sample) string {
	return fmt.Sprintf("[%s] - X=%.4f, Y=%.4f, Z=%.4f",
		s.Time.Format(TimeFormat), s.Position.X, s.Position.Y, s.Position.Z)
}

// FileSink appends one line per sample to a text file.  The file is
// opened for each append so that it may be rotated or removed between
// samples.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink returns a sink writing to path.  The file is created on
// the first append.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Append writes one line.
func (f *FileSink) Append(s Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &PersistenceError{Sink: f.path, Err: err}
	}
	if _, err := fmt.Fprintln(fd, FormatLine(s)); err != nil {
		fd.Close()
		return &PersistenceError{Sink: f.path, Err: err}
	}
	if err := fd.Close(); err != nil {
		return &PersistenceError{Sink: f.path, Err: err}
	}
	return nil
}

// Close is a no-op; the file is never held open.
func (f *FileSink) Close() error { return nil }

const samplesSchema = `CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	z REAL NOT NULL
)`

// SQLiteSink stores samples in a samples table.
type SQLiteSink struct {
	path string
	db   *sql.DB
	ins  *sql.Stmt
}

// OpenSQLite opens or creates the database at path and ensures the
// samples table exists.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &PersistenceError{Sink: path, Err: err}
	}
	if _, err := db.Exec(samplesSchema); err != nil {
		db.Close()
		return nil, &PersistenceError{Sink: path, Err: err}
	}
	ins, err := db.Prepare("INSERT INTO samples (ts, x, y, z) VALUES (?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, &PersistenceError{Sink: path, Err: err}
	}
	return &SQLiteSink{path: path, db: db, ins: ins}, nil
}

// Append inserts one row.
func (q *SQLiteSink) Append(s Sample) error {
	if _, err := q.ins.Exec(s.Time.Format(TimeFormat), s.Position.X, s.Position.Y, s.Position.Z); err != nil {
		return &PersistenceError{Sink: q.path, Err: err}
	}
	return nil
}

// Count returns the number of stored samples.
func (q *SQLiteSink) Count() (int, error) {
	var n int
	err := q.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n)
	return n, err
}

// Close releases the database.
func (q *SQLiteSink) Close() error {
	return errors.Join(q.ins.Close(), q.db.Close())
}

// MultiSink fans each sample out to several sinks.  Every sink is
// attempted; the errors are joined.
type MultiSink []Sink

// Append writes to all sinks.
func (m MultiSink) Append(s Sample) error {
	var errs []error
	for _, sk := range m {
		if err := sk.Append(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (m MultiSink) Close() error {
	var errs []error
	for _, sk := range m {
		if err := sk.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
