package frame

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadSQLite(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE exp1 (participant TEXT, age INTEGER, rt REAL);
		INSERT INTO exp1 VALUES ('p2', 21, 0.7);
		INSERT INTO exp1 VALUES ('p1', NULL, 0.5);
	`)
	require.NoError(t, err)

	f, err := LoadSQLite(ctx, db, "exp1")
	require.NoError(t, err)

	assert.Equal(t, []string{"participant", "age", "rt"}, f.Columns())
	assert.Equal(t, 2, f.Len())

	participants, err := f.Column("participant")
	require.NoError(t, err)
	assert.Equal(t, []any{"p2", "p1"}, participants, "rows keep rowid order")

	ages, err := f.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(21), nil}, ages)

	typ, err := f.Type("rt")
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, typ)
}

func TestLoadSQLiteEmptyTable(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE empty (a TEXT, b INTEGER)`)
	require.NoError(t, err)

	f, err := LoadSQLite(ctx, db, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, []string{"a", "b"}, f.Columns())
}

func TestLoadSQLiteRejectsBadIdentifier(t *testing.T) {
	db := openMemDB(t)

	for _, name := range []string{"", "exp1; DROP TABLE x", "1abc", "a-b"} {
		_, err := LoadSQLite(context.Background(), db, name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "invalid table name")
	}
}

func TestLoadSQLiteMissingTable(t *testing.T) {
	db := openMemDB(t)
	_, err := LoadSQLite(context.Background(), db, "nope")
	require.Error(t, err)
}
