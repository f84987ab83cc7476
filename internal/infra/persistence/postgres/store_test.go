package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staytrack/internal/infra/persistence/memory"
	"staytrack/pkg/domain"
)

func openMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	return db, mock
}

func expectBootstrap(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS staytrack_state").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT bucket, payload FROM staytrack_state").WillReturnRows(rows)
}

func TestNewStoreLoadsSnapshot(t *testing.T) {
	_, mock := openMock(t)
	rows := sqlmock.NewRows([]string{"bucket", "payload"}).
		AddRow("students", []byte(`{"s1":{"id":"s1","owner_id":"o1","name":"Rahul","rent":"5000","status":"Active"}}`)).
		AddRow("legacy", []byte(`{"ignored":true}`))
	expectBootstrap(mock, rows)

	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	require.NoError(t, err)

	err = store.View(context.Background(), func(v domain.TransactionView) error {
		students := v.ListStudents("o1")
		require.Len(t, students, 1)
		assert.Equal(t, "Rahul", students[0].Name)
		assert.Equal(t, "5000", students[0].Rent.String())
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionPersistsEveryBucket(t *testing.T) {
	_, mock := openMock(t)
	expectBootstrap(mock, sqlmock.NewRows([]string{"bucket", "payload"}))

	store, err := NewStore(context.Background(), "postgres://example/db", nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	for _, bucket := range memory.Buckets {
		mock.ExpectExec("INSERT INTO staytrack_state").
			WithArgs(bucket, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateHostel(domain.Hostel{Base: domain.Base{OwnerID: "o1"}, Name: "North"})
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRollsBackOnUpsertFailure(t *testing.T) {
	_, mock := openMock(t)
	expectBootstrap(mock, sqlmock.NewRows([]string{"bucket", "payload"}))

	store, err := NewStore(context.Background(), "", nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staytrack_state").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateHostel(domain.Hostel{Base: domain.Base{OwnerID: "o1"}, Name: "North"})
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert hostels")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreSurfacesBootstrapErrors(t *testing.T) {
	_, mock := openMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS staytrack_state").WillReturnError(errors.New("permission denied"))

	_, err := NewStore(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure state table")
}

func TestNewStoreSurfacesOpenErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("no driver") })
	defer restore()

	_, err := NewStore(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open postgres")
}
