// Package journal keeps finished transactions in a SQLite database so past
// exchanges can be listed and inspected.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown entry ID.
var ErrNotFound = errors.New("journal entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	type             TEXT NOT NULL,
	method           TEXT NOT NULL,
	uri              TEXT NOT NULL,
	version          TEXT NOT NULL,
	headers          TEXT NOT NULL,
	body             BLOB,
	response_version TEXT NOT NULL,
	response_code    INTEGER NOT NULL,
	response_message TEXT NOT NULL,
	response_headers TEXT NOT NULL,
	response_body    BLOB,
	start_time       INTEGER NOT NULL,
	stop_time        INTEGER NOT NULL,
	cause            TEXT NOT NULL DEFAULT '',
	phase            TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transactions_start_time ON transactions (start_time);
`

const columns = `id, type, method, uri, version, headers, body,
	response_version, response_code, response_message, response_headers, response_body,
	start_time, stop_time, cause, phase, error`

// Entry is a journaled transaction. Error details are flattened because the
// original error value does not survive storage.
type Entry struct {
	ID          string
	Transaction *http.Transaction
	Cause       http.Cause
	Phase       http.Phase
	Error       string
}

// Journal is a SQLite-backed transaction log
type Journal struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the journal at path. Accepted forms are a plain
// file path, sqlite://path and sqlite:path.
func Open(path string) (*Journal, error) {
	dsn, err := parseConnectionString(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Journal{
		db:           db,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record stores tx and returns its new entry ID.
func (j *Journal) Record(ctx context.Context, tx *http.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.queryTimeout)
	defer cancel()

	headers, err := json.Marshal(tx.Headers)
	if err != nil {
		return "", fmt.Errorf("encoding request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(tx.ResponseHeaders)
	if err != nil {
		return "", fmt.Errorf("encoding response headers: %w", err)
	}

	var cause, phase, message string
	if tx.Info.Error != nil {
		message = tx.Info.Error.Error()
		var te *http.TransportError
		if errors.As(tx.Info.Error, &te) {
			cause, phase = string(te.Cause), string(te.Phase)
		}
	}

	id := uuid.New().String()
	_, err = j.db.ExecContext(ctx, `INSERT INTO transactions (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tx.Type, tx.Method, tx.URI, tx.Version, string(headers), tx.Body,
		tx.ResponseVersion, tx.ResponseCode, tx.ResponseMessage, string(responseHeaders), tx.ResponseBody,
		tx.Info.StartTime.UnixNano(), tx.Info.StopTime.UnixNano(), cause, phase, message,
	)
	if err != nil {
		return "", fmt.Errorf("insert failed: %w", err)
	}
	return id, nil
}

// List returns up to limit entries, newest first. A limit below 1 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, j.queryTimeout)
	defer cancel()

	query := `SELECT ` + columns + ` FROM transactions ORDER BY start_time DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, j.queryTimeout)
	defer cancel()

	row := j.db.QueryRowContext(ctx, `SELECT `+columns+` FROM transactions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Prune deletes entries that started before cutoff and reports how many went.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, j.queryTimeout)
	defer cancel()

	res, err := j.db.ExecContext(ctx, `DELETE FROM transactions WHERE start_time < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e                        Entry
		tx                       http.Transaction
		headers, responseHeaders string
		start, stop              int64
		cause, phase             string
	)
	err := s.Scan(&e.ID, &tx.Type, &tx.Method, &tx.URI, &tx.Version, &headers, &tx.Body,
		&tx.ResponseVersion, &tx.ResponseCode, &tx.ResponseMessage, &responseHeaders, &tx.ResponseBody,
		&start, &stop, &cause, &phase, &e.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if err := json.Unmarshal([]byte(headers), &tx.Headers); err != nil {
		return nil, fmt.Errorf("decoding request headers: %w", err)
	}
	if err := json.Unmarshal([]byte(responseHeaders), &tx.ResponseHeaders); err != nil {
		return nil, fmt.Errorf("decoding response headers: %w", err)
	}
	if tx.ResponseBody == nil {
		tx.ResponseBody = []byte{}
	}
	tx.Info.StartTime = time.Unix(0, start)
	tx.Info.StopTime = time.Unix(0, stop)

	e.Cause, e.Phase = http.Cause(cause), http.Phase(phase)
	if cause != "" {
		tx.Info.Error = &http.TransportError{Cause: e.Cause, Phase: e.Phase, Err: errors.New(e.Error)}
	}
	e.Transaction = &tx
	return &e, nil
}

func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	case strings.Contains(connStr, "://"):
		return "", fmt.Errorf("unsupported journal scheme: %s", connStr)
	}
	if connStr == "" {
		return "", errors.New("journal path is empty")
	}
	return connStr, nil
}
