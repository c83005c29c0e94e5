package frame

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"
)

// validIdentifier matches valid SQL identifiers (table names).
// Identifiers cannot be parameterized, so they are validated before being
// interpolated into the query.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadSQLite reads a whole table into a frame in rowid order. The database
// is only read; specs never execute as SQL.
func LoadSQLite(ctx context.Context, db *sql.DB, table string) (*Frame, error) {
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: must match %s", table, validIdentifier.String())
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}

	cells := make([][]any, len(names))
	for rows.Next() {
		dest := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for i, v := range dest {
			cells[i] = append(cells[i], fromSQL(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		c := cells[i]
		if c == nil {
			c = []any{}
		}
		cols[i] = Column{Name: name, Cells: c}
	}
	f, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return f, nil
}

func fromSQL(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return val
	}
}
