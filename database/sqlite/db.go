package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sagarc03/packway"
)

// exchangeColumns is the layout created by createExchangesTable. SQLite
// reports declared types, so these match the CREATE TABLE text.
var exchangeColumns = []packway.Column{
	{Name: "id", Type: "text"},
	{Name: "repository", Type: "text"},
	{Name: "service", Type: "text"},
	{Name: "advertise_refs", Type: "integer"},
	{Name: "status", Type: "text"},
	{Name: "bytes_in", Type: "integer"},
	{Name: "bytes_out", Type: "integer"},
	{Name: "started_at", Type: "text"},
	{Name: "finished_at", Type: "text"},
}

// exchangeIndexes returns the indexes List relies on for keyset pagination.
func exchangeIndexes(tableName string) []string {
	return []string{
		fmt.Sprintf("idx_%s_recent", tableName),
		fmt.Sprintf("idx_%s_repository", tableName),
	}
}

// ValidateSchema checks that the exchange log table exists with the columns
// and indexes Record and List expect.
func ValidateSchema(ctx context.Context, db *sql.DB, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	table := tables.Exchanges

	exists, err := objectExists(ctx, db, "table", table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("validate schema: exchange log table %s does not exist: %w", table, packway.ErrSchemaMismatch)
	}

	columns, err := tableColumns(ctx, db, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	serr := packway.CheckColumns(table, exchangeColumns, columns)
	for _, index := range exchangeIndexes(table) {
		ok, err := objectExists(ctx, db, "index", index)
		if err != nil {
			return fmt.Errorf("validate schema %s: %w", table, err)
		}
		if !ok {
			serr.MissingIndexes = append(serr.MissingIndexes, index)
		}
	}

	if err := serr.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]packway.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]packway.Column)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("table info: scan: %w", err)
		}
		columns[name] = packway.Column{Name: name, Type: dataType, Nullable: notNull == 0}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	return columns, nil
}

// objectExists looks name up in sqlite_master; kind is "table" or "index".
func objectExists(ctx context.Context, db *sql.DB, kind, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s %s: %w", kind, name, err)
	}
	return true, nil
}
