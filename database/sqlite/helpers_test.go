package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// getTestDatabase opens a private in-memory database.
func getTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open sqlite database")
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupTestLog creates a migrated log with a unique table name.
func setupTestLog(t *testing.T) *sqlite.Log {
	t.Helper()
	ctx := context.Background()

	db := getTestDatabase(t)
	tables := packway.Tables{Exchanges: "exchanges_" + getRandomString(t)}

	require.NoError(t, sqlite.Migrate(ctx, db, tables), "failed to migrate")

	log, err := sqlite.NewLog(db, tables)
	require.NoError(t, err)
	return log
}

func newExchange(repo string, startedAt time.Time) packway.Exchange {
	return packway.Exchange{
		ID:         uuid.New(),
		Repository: repo,
		Service:    packway.ServiceUploadPack,
		Status:     packway.ExchangeOK,
		BytesIn:    120,
		BytesOut:   4096,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(250 * time.Millisecond),
	}
}
