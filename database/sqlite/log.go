// Package sqlite implements packway.ExchangeLog using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/packway"
)

// timeFormat is fixed width so that text comparison orders timestamps.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type Log struct {
	db        *sql.DB
	tableName string
}

func NewLog(db *sql.DB, tables packway.Tables) (*Log, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new log: %w", err)
	}

	return &Log{db: db, tableName: tables.Exchanges}, nil
}

// Ping verifies database connectivity.
func (l *Log) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Log) Record(ctx context.Context, e packway.Exchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, repository, service, advertise_refs, status, bytes_in, bytes_out, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, quoteIdentifier(l.tableName))

	_, err := l.db.ExecContext(ctx, query,
		e.ID.String(), e.Repository, string(e.Service), e.AdvertiseRefs, e.Status,
		e.BytesIn, e.BytesOut, formatTime(e.StartedAt), formatTime(e.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	return nil
}

func (l *Log) List(ctx context.Context, q packway.ListQuery) (packway.ListResult, error) {
	cursor, err := packway.DecodeCursor(q.Cursor)
	if err != nil {
		return packway.ListResult{}, fmt.Errorf("list: %w", err)
	}

	limit := q.PageSize()

	var conditions []string
	var args []any

	if q.Repository != "" {
		conditions = append(conditions, "repository = ?")
		args = append(args, q.Repository)
	}

	if q.Cursor != "" {
		conditions = append(conditions, "(started_at < ? OR (started_at = ? AND id < ?))")
		startedAt := formatTime(cursor.StartedAt)
		args = append(args, startedAt, startedAt, cursor.ID.String())
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, repository, service, advertise_refs, status, bytes_in, bytes_out, started_at, finished_at
		FROM %s
		%s
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, quoteIdentifier(l.tableName), where)
	args = append(args, limit+1)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return packway.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]packway.Exchange, 0, limit)
	for rows.Next() {
		var e packway.Exchange
		var idStr, service, startedAt, finishedAt string

		if err := rows.Scan(&idStr, &e.Repository, &service, &e.AdvertiseRefs, &e.Status,
			&e.BytesIn, &e.BytesOut, &startedAt, &finishedAt); err != nil {
			return packway.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}

		e.Service = packway.Service(service)

		var parseErr error
		e.ID, parseErr = uuid.Parse(idStr)
		if parseErr != nil {
			return packway.ListResult{}, fmt.Errorf("list: parse uuid: %w", parseErr)
		}

		e.StartedAt, parseErr = time.Parse(timeFormat, startedAt)
		if parseErr != nil {
			return packway.ListResult{}, fmt.Errorf("list: parse started_at: %w", parseErr)
		}

		e.FinishedAt, parseErr = time.Parse(timeFormat, finishedAt)
		if parseErr != nil {
			return packway.ListResult{}, fmt.Errorf("list: parse finished_at: %w", parseErr)
		}

		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		return packway.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > limit {
		last := items[limit-1]
		nextCursor = packway.EncodeCursor(last.StartedAt, last.ID)
		items = items[:limit]
	}

	return packway.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

var _ packway.ExchangeLog = (*Log)(nil)
