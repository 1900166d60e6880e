package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestThemeRoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, KeyTheme)
	require.NoError(t, err)
	require.Nil(t, v, "missing key reads as nil")

	require.NoError(t, r.Set(ctx, KeyTheme, []byte("dark")))
	require.NoError(t, r.Set(ctx, KeyTheme, []byte("system")))

	v, err = r.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, []byte("system"), v)
}

func TestSet_NilValueStoredAsEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeySessionToken, nil))
	v, err := r.Get(ctx, KeySessionToken)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Empty(t, v)
}

func TestScan_OnlyMatchingPrefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyTheme, []byte("light")))
	require.NoError(t, r.Set(ctx, KeySessionToken, []byte("tok")))
	require.NoError(t, r.Set(ctx, KeySessionUser, []byte(`{"id":1}`)))
	require.NoError(t, r.Set(ctx, "sessionXtoken", []byte("not mine")))

	got, err := r.Scan(ctx, SessionPrefix)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		KeySessionToken: []byte("tok"),
		KeySessionUser:  []byte(`{"id":1}`),
	}, got)

	all, err := r.Scan(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestScan_WildcardsAreLiteral(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a_b", []byte{1}))
	require.NoError(t, r.Set(ctx, "axb", []byte{2}))

	got, err := r.Scan(ctx, "a_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a_b": {1}}, got)
}

func TestDelete_ManyKeysAndIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyTheme, []byte("dark")))
	require.NoError(t, r.Set(ctx, KeySessionToken, []byte("tok")))
	require.NoError(t, r.Set(ctx, KeySessionUser, []byte("{}")))

	require.NoError(t, r.Delete(ctx, KeySessionToken, KeySessionUser))
	require.NoError(t, r.Delete(ctx, KeySessionToken, KeySessionUser))
	require.NoError(t, r.Delete(ctx))

	left, err := r.Scan(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{KeyTheme: []byte("dark")}, left)
}

func TestClosedDBErrorsNameTheKey(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, KeyTheme)
	assert.ErrorContains(t, err, "get theme")

	err = r.Set(ctx, KeyTheme, []byte("x"))
	assert.ErrorContains(t, err, "set theme")

	err = r.Delete(ctx, KeySessionToken, KeySessionUser)
	assert.ErrorContains(t, err, "delete session.token, session.user")

	_, err = r.Scan(ctx, SessionPrefix)
	assert.ErrorContains(t, err, `scan "session."`)
}

func TestRunsInsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(tx).Set(ctx, KeySessionToken, []byte("tok")))
	require.NoError(t, tx.Rollback())

	v, err := NewSQLiteRepository(db).Get(ctx, KeySessionToken)
	require.NoError(t, err)
	assert.Nil(t, v, "rolled back write is not visible")
}

func TestScan_RowsErrWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow(KeySessionToken, []byte("tok")).
		RowError(0, errors.New("disk I/O error"))
	mock.ExpectQuery(`SELECT key, value FROM metadata WHERE substr`).
		WithArgs(len(SessionPrefix), SessionPrefix).
		WillReturnRows(rows)

	_, err = NewSQLiteRepository(db).Scan(context.Background(), SessionPrefix)
	require.ErrorContains(t, err, "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_ExecErrorWrapped_Mock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(`INSERT INTO metadata`).
		WithArgs(KeyTheme, []byte("light")).
		WillReturnError(errors.New("database is locked"))

	err = NewSQLiteRepository(db).Set(context.Background(), KeyTheme, []byte("light"))
	require.ErrorContains(t, err, "set theme: database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_BuildsOnePlaceholderPerKey_Mock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(`DELETE FROM metadata WHERE key IN (?, ?)`).
		WithArgs(KeySessionToken, KeySessionUser).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewSQLiteRepository(db).Delete(context.Background(), KeySessionToken, KeySessionUser))
	require.NoError(t, mock.ExpectationsWereMet())
}
