package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/packway"
)

// Migrate creates the exchange log tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createExchangesTable(ctx, pool, tables.Exchanges); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// DropTables removes the exchange log tables.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tables.Exchanges}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

func createExchangesTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexes := exchangeIndexes(tableName)
	indexRecent := pgx.Identifier{indexes[0]}.Sanitize()
	indexRepository := pgx.Identifier{indexes[1]}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			repository TEXT NOT NULL,
			service TEXT NOT NULL,
			advertise_refs BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			bytes_in BIGINT NOT NULL,
			bytes_out BIGINT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (started_at DESC, id DESC);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (repository, started_at DESC, id DESC);
	`,
		quotedTable,
		indexRecent, quotedTable,
		indexRepository, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create exchanges table: %w", err)
	}
	return nil
}
