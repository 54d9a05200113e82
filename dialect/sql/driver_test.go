package sql

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lkey/dialect"
)

func TestDialectNormalization(t *testing.T) {
	t.Parallel()
	tests := []struct {
		registered string
		want       string
	}{
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
		{"mysql", "mysql"},
		{"postgres", "postgres"},
		{"postgres-replica", "postgres"},
		{"oracle", "oracle"},
	}
	for _, tt := range tests {
		drv := NewDriver(tt.registered, Conn{})
		assert.Equal(t, tt.want, drv.Dialect())
	}
}

func TestConnQuery(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "owners"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	drv := OpenDB(dialect.SQLite, db)
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), `SELECT "id" FROM "owners"`, []any{}, &rows))
	tuples, err := ScanTuples(&rows, 1)
	require.NoError(t, err)
	require.Len(t, tuples, 2)
	assert.Equal(t, int64(1), tuples[0][0])
	assert.Equal(t, int64(2), tuples[1][0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnQueryBadTarget(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)
	var wrong int
	err = drv.Query(context.Background(), "SELECT 1", []any{}, &wrong)
	assert.ErrorContains(t, err, "invalid type *int")
}

func TestConnExec(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "owners" ("email") VALUES (?)`)).
		WithArgs("a@example.com").
		WillReturnResult(sqlmock.NewResult(7, 1))

	drv := OpenDB(dialect.SQLite, db)
	var res Result
	require.NoError(t, drv.Exec(context.Background(), `INSERT INTO "owners" ("email") VALUES (?)`, []any{"a@example.com"}, &res))
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnExecBadArgs(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)
	err = drv.Exec(context.Background(), "DELETE FROM owners", "not-a-slice", nil)
	assert.ErrorContains(t, err, "expect []any for args")
}

func TestDriverTx(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "owners" SET "name" = ?`)).
		WithArgs("b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	drv := OpenDB(dialect.SQLite, db)
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), `UPDATE "owners" SET "name" = ?`, []any{"b"}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTxRollback(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	drv := OpenDB(dialect.SQLite, db)
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanTuplesWidth(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(1, "a@example.com").
			AddRow(2, "b@example.com"))

	drv := OpenDB(dialect.SQLite, db)
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT", []any{}, &rows))
	tuples, err := ScanTuples(&rows, 2)
	require.NoError(t, err)
	require.Len(t, tuples, 2)
	assert.Equal(t, "a@example.com", tuples[0][1])
}
