package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/packway"
)

// maxIdentifierLength is NAMEDATALEN-1; PostgreSQL truncates longer names.
const maxIdentifierLength = 63

// exchangeColumns is the layout created by createExchangesTable, with types
// as information_schema spells them.
var exchangeColumns = []packway.Column{
	{Name: "id", Type: "uuid"},
	{Name: "repository", Type: "text"},
	{Name: "service", Type: "text"},
	{Name: "advertise_refs", Type: "boolean"},
	{Name: "status", Type: "text"},
	{Name: "bytes_in", Type: "bigint"},
	{Name: "bytes_out", Type: "bigint"},
	{Name: "started_at", Type: "timestamp with time zone"},
	{Name: "finished_at", Type: "timestamp with time zone"},
}

// exchangeIndexes returns the names of the indexes List relies on. Long
// table names are shortened so the suffixes stay distinct within the limit.
func exchangeIndexes(tableName string) []string {
	suffixes := []string{"_recent", "_repository"}
	names := make([]string, len(suffixes))
	for i, suffix := range suffixes {
		table := tableName
		if limit := maxIdentifierLength - len("idx_") - len(suffix); len(table) > limit {
			table = table[:limit]
		}
		names[i] = "idx_" + table + suffix
	}
	return names
}

// ValidateSchema checks that the exchange log table exists in the public
// schema with the columns and indexes Record and List expect.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	table := tables.Exchanges

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("validate schema %s: lookup table: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("validate schema: exchange log table %s does not exist: %w", table, packway.ErrSchemaMismatch)
	}

	columns, err := tableColumns(ctx, pool, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	serr := packway.CheckColumns(table, exchangeColumns, columns)

	indexes, err := tableIndexes(ctx, pool, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	for _, index := range exchangeIndexes(table) {
		if !indexes[index] {
			serr.MissingIndexes = append(serr.MissingIndexes, index)
		}
	}

	if err := serr.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}

func tableColumns(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]packway.Column, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]packway.Column)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = packway.Column{Name: name, Type: dataType, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	return columns, nil
}

func tableIndexes(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `
		SELECT indexname FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	indexes := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indexes[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	return indexes, nil
}
