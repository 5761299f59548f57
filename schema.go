package packway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is returned when an existing exchange log table cannot be
// used as is.
var ErrSchemaMismatch = errors.New("exchange log schema mismatch")

// Column is one column of an exchange log table as the database reports it.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// SchemaError lists everything wrong with an exchange log table.
type SchemaError struct {
	Table          string
	Missing        []string
	Mismatched     []string
	MissingIndexes []string
}

// CheckColumns compares the columns found in table against want, reporting
// problems in the order of want.
func CheckColumns(table string, want []Column, got map[string]Column) SchemaError {
	serr := SchemaError{Table: table}
	for _, w := range want {
		g, ok := got[w.Name]
		if !ok {
			serr.Missing = append(serr.Missing, w.Name)
			continue
		}
		if !strings.EqualFold(g.Type, w.Type) {
			serr.Mismatched = append(serr.Mismatched, fmt.Sprintf("%s: expected %s, got %s", w.Name, w.Type, strings.ToLower(g.Type)))
		}
		switch {
		case g.Nullable && !w.Nullable:
			serr.Mismatched = append(serr.Mismatched, fmt.Sprintf("%s: expected NOT NULL, column allows NULL", w.Name))
		case !g.Nullable && w.Nullable:
			serr.Mismatched = append(serr.Mismatched, fmt.Sprintf("%s: expected NULL to be allowed", w.Name))
		}
	}
	return serr
}

// Err returns e as an error, or nil when the table is usable.
func (e SchemaError) Err() error {
	if len(e.Missing) == 0 && len(e.Mismatched) == 0 && len(e.MissingIndexes) == 0 {
		return nil
	}
	return &e
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exchange log table %s cannot be used:", e.Table)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "\n  missing columns: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Mismatched) > 0 {
		b.WriteString("\n  mismatched columns:")
		for _, m := range e.Mismatched {
			fmt.Fprintf(&b, "\n    - %s", m)
		}
	}
	if len(e.MissingIndexes) > 0 {
		fmt.Fprintf(&b, "\n  missing indexes: %s", strings.Join(e.MissingIndexes, ", "))
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}
