// Package postgres implements packway.ExchangeLog using PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/packway"
)

type Log struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewLog(pool *pgxpool.Pool, tables packway.Tables) (*Log, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new log: %w", err)
	}

	return &Log{pool: pool, tableName: pgx.Identifier{tables.Exchanges}.Sanitize()}, nil
}

// Ping verifies database connectivity.
func (l *Log) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *Log) Record(ctx context.Context, e packway.Exchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, repository, service, advertise_refs, status, bytes_in, bytes_out, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.tableName)

	_, err := l.pool.Exec(ctx, query,
		e.ID, e.Repository, string(e.Service), e.AdvertiseRefs, e.Status,
		e.BytesIn, e.BytesOut, e.StartedAt, e.FinishedAt,
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
		args = append(args, q.Repository)
		conditions = append(conditions, fmt.Sprintf("repository = $%d", len(args)))
	}

	if q.Cursor != "" {
		args = append(args, cursor.StartedAt, cursor.ID)
		conditions = append(conditions, fmt.Sprintf("(started_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit+1)
	query := fmt.Sprintf(`
		SELECT id, repository, service, advertise_refs, status, bytes_in, bytes_out, started_at, finished_at
		FROM %s
		%s
		ORDER BY started_at DESC, id DESC
		LIMIT $%d
	`, l.tableName, where, len(args))

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return packway.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]packway.Exchange, 0, limit)
	for rows.Next() {
		var e packway.Exchange
		var service string
		if err := rows.Scan(&e.ID, &e.Repository, &service, &e.AdvertiseRefs, &e.Status,
			&e.BytesIn, &e.BytesOut, &e.StartedAt, &e.FinishedAt); err != nil {
			return packway.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}
		e.Service = packway.Service(service)
		e.StartedAt = e.StartedAt.UTC()
		e.FinishedAt = e.FinishedAt.UTC()
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

var _ packway.ExchangeLog = (*Log)(nil)
