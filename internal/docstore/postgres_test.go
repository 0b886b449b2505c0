package docstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Postgres) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgres(db)
}

func TestPostgres_GetFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"device_id":"d1"}`))
	mock.ExpectQuery(`SELECT data FROM documents`).
		WithArgs("devices", "d1").
		WillReturnRows(rows)

	doc, err := store.Get(context.Background(), "devices", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	assert.JSONEq(t, `{"device_id":"d1"}`, string(doc.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT data FROM documents`).
		WithArgs("devices", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "devices", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_SetUpsert(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("devices", "d1", []byte(`{"device_id":"d1"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Set(context.Background(), "devices", "d1", []byte(`{"device_id":"d1"}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryCompilesContainment(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"doc_id", "data"}).
		AddRow("a", []byte(`{"bound_to":"o1","tags":["t1"]}`))

	// 等值 -> {"field":value}，数组包含 -> {"field":[value]}
	mock.ExpectQuery(`SELECT doc_id, data FROM documents WHERE collection = \$1 AND data @> \$2::jsonb AND data @> \$3::jsonb ORDER BY doc_id LIMIT 10`).
		WithArgs("devices", `{"bound_to":"o1"}`, `{"tags":["t1"]}`).
		WillReturnRows(rows)

	docs, err := store.Query(context.Background(), "devices",
		[]Filter{Eq("bound_to", "o1"), Contains("tags", "t1")}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BatchCommitSingleTransaction(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("anonymized_activities", "anon-1", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("activities", "live-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := store.NewBatch()
	b.Set("anonymized_activities", "anon-1", []byte(`{}`))
	b.Delete("activities", "live-1")
	require.NoError(t, b.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BatchRollbackOnError(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("devices", "d1", []byte(`{}`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	b := store.NewBatch()
	b.Set("devices", "d1", []byte(`{}`))
	err := b.Commit(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
