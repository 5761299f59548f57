// Package database connects the exchange log to its storage backend.
//
// The package supports PostgreSQL and SQLite and handles connection
// management, migrations, and schema validation.
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "packway.db",
//	    Tables: packway.Tables{Exchanges: "packway_exchanges"},
//	}
//
//	log, cleanup, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
