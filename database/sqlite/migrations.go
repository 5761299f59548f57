package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/packway"
)

// quoteIdentifier quotes a SQLite identifier. Names are validated beforehand.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables packway.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Exchanges,
			Up:        createExchangesTable(tables.Exchanges),
			Down:      dropTable(tables.Exchanges),
		},
	}
}

// Migrate creates the exchange log tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables removes the exchange log tables in reverse creation order.
func DropTables(ctx context.Context, db *sql.DB, tables packway.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	migrations := getTableMigrations(tables)
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}

	return nil
}

func createExchangesTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexes := exchangeIndexes(tableName)
		indexRecent := quoteIdentifier(indexes[0])
		indexRepository := quoteIdentifier(indexes[1])

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				repository TEXT NOT NULL,
				service TEXT NOT NULL,
				advertise_refs INTEGER NOT NULL,
				status TEXT NOT NULL,
				bytes_in INTEGER NOT NULL,
				bytes_out INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (started_at DESC, id DESC)
		`, indexRecent, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index recent: %w", err)
		}

		indexSQL = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (repository, started_at DESC, id DESC)
		`, indexRepository, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index repository: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}
