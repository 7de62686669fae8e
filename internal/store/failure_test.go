package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoplist/internal/ids"
	"github.com/roach88/shoplist/internal/shop"
)

var errDisk = errors.New("disk I/O error")

// newMockStore returns a store backed by sqlmock plus the buffer its logger writes to.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s := New(sqlx.NewDb(db, "sqlmock"),
		WithLogger(logger),
		WithIDGenerator(ids.NewFixedGenerator("list-1", "item-1")),
	)
	return s, mock, &logs
}

func TestFailure_CreateListInsert(t *testing.T) {
	s, mock, logs := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lists")).WillReturnError(errDisk)
	mock.ExpectRollback()

	id, err := s.CreateList(context.Background())

	assert.Empty(t, id)
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.NotContains(t, err.Error(), "disk", "backend detail must not leak")
	assert.Contains(t, logs.String(), "storage failure")
	assert.Contains(t, logs.String(), "op=\"create list\"")
	assert.Contains(t, logs.String(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_Begin(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errDisk)

	_, err := s.CurrentList(context.Background())
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_Commit(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET recurring")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errDisk)

	err := s.SetRecurring(context.Background(), "item-1", true)
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_AddItemRollsBackOnAllocationError(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lists")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO items")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO item_allocation")).
		WillReturnError(errDisk)
	mock.ExpectRollback()

	id, err := s.AddItem(context.Background(), "list-1", shop.ItemInput{Name: "Milk"})

	assert.Empty(t, id)
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_NotFoundIsNotLogged(t *testing.T) {
	s, mock, logs := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lists SET active")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.DeactivateList(context.Background(), "missing")
	assert.True(t, shop.IsNotFound(err))
	assert.Empty(t, logs.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_SearchQuery(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, img, recurring FROM items WHERE name LIKE ?")).
		WithArgs("Mi%").
		WillReturnError(errDisk)
	mock.ExpectRollback()

	items, err := s.SearchItems(context.Background(), "Mi")
	assert.Nil(t, items)
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_TimeoutBoundsEveryCall(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var logs bytes.Buffer
	s := New(sqlx.NewDb(db, "sqlmock"),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithTimeout(10*time.Millisecond),
	)

	mock.ExpectBegin().WillDelayFor(time.Second)

	start := time.Now()
	_, err = s.CountLists(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond, "call must give up at the store timeout")
	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.Equal(t, 1, strings.Count(logs.String(), "storage failure"))
	assert.Contains(t, logs.String(), `op="count lists"`)
}

func TestFailure_ContextAlreadyDone(t *testing.T) {
	s, _, logs := newMockStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.CreateList(ctx)

	assert.Equal(t, shop.KindStorage, shop.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, strings.Count(logs.String(), "storage failure"))
}

// Postgres schema versioning

func newPostgresMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, DriverPostgres), mock
}

func TestMigrations_PostgresFromV0(t *testing.T) {
	db, mock := newPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_version")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM schema_version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_item_allocation_list")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schema_version")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version) VALUES ($1)")).
		WithArgs(int64(currentSchemaVersion)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, applySchema(db, DriverPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_PostgresCurrentIsNoop(t *testing.T) {
	db, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM schema_version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(currentSchemaVersion))

	require.NoError(t, runMigrations(db, DriverPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_PostgresVersionQueryFails(t *testing.T) {
	db, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schema_version")).WillReturnError(errDisk)

	err := runMigrations(db, DriverPostgres)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
}
