package packway_test

import (
	"errors"
	"testing"

	"github.com/sagarc03/packway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wantColumns = []packway.Column{
	{Name: "id", Type: "text"},
	{Name: "status", Type: "text"},
	{Name: "bytes_in", Type: "integer"},
}

func TestCheckColumns_Match(t *testing.T) {
	got := map[string]packway.Column{
		"id":       {Name: "id", Type: "TEXT"},
		"status":   {Name: "status", Type: "text"},
		"bytes_in": {Name: "bytes_in", Type: "INTEGER"},
		"extra":    {Name: "extra", Type: "text", Nullable: true},
	}

	assert.NoError(t, packway.CheckColumns("exchanges", wantColumns, got).Err())
}

func TestCheckColumns_Problems(t *testing.T) {
	got := map[string]packway.Column{
		"id":       {Name: "id", Type: "text", Nullable: true},
		"bytes_in": {Name: "bytes_in", Type: "TEXT"},
	}

	serr := packway.CheckColumns("exchanges", wantColumns, got)
	assert.Equal(t, []string{"status"}, serr.Missing)
	assert.Equal(t, []string{
		"id: expected NOT NULL, column allows NULL",
		"bytes_in: expected integer, got text",
	}, serr.Mismatched)

	err := serr.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, packway.ErrSchemaMismatch)
	assert.Equal(t, "exchange log table exchanges cannot be used:\n"+
		"  missing columns: status\n"+
		"  mismatched columns:\n"+
		"    - id: expected NOT NULL, column allows NULL\n"+
		"    - bytes_in: expected integer, got text", err.Error())

	var target *packway.SchemaError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "exchanges", target.Table)
}

func TestSchemaError_MissingIndexesOnly(t *testing.T) {
	serr := packway.SchemaError{Table: "exchanges", MissingIndexes: []string{"idx_exchanges_recent"}}

	err := serr.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing indexes: idx_exchanges_recent")
	assert.NotContains(t, err.Error(), "missing columns")
}
