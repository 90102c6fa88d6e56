package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var columns = []string{"id", "kind", "content", "name", "byte_size", "media_type", "payload_ref", "is_important", "created_at", "updated_at"}

func TestUpsert_StampsUpdatedAt(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	stamp := created.Add(time.Hour)

	mock.ExpectQuery(`INSERT INTO vault_items .* ON CONFLICT \(id\) DO UPDATE SET .* RETURNING updated_at`).
		WithArgs("f1", "file", "", "a.png", int64(4), "image/png", "items/f1/a.png", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(stamp))

	item := models.NewFile("f1", "a.png", "image/png", []byte("abcd"), created).WithRemotePayload("items/f1/a.png")
	item.IsImportant = true

	got, err := repo.Upsert(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(stamp))
	assert.Equal(t, "items/f1/a.png", got.Payload.Ref)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO vault_items`).WillReturnError(errors.New("conn reset"))

	_, err := repo.Upsert(context.Background(), models.NewNote("n1", "hi", created))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert document n1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAll_MapsRows(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	stamp := created.Add(time.Minute)

	rows := sqlmock.NewRows(columns).
		AddRow("n2", "note", "second", "", int64(0), "", "", false, created, stamp).
		AddRow("f1", "file", "", "a.txt", int64(3), "text/plain", "items/f1/a.txt", true, created, stamp)
	mock.ExpectQuery(`SELECT .* FROM vault_items\s+ORDER BY id DESC`).WillReturnRows(rows)

	got, err := repo.SelectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.KindNote, got[0].Kind)
	assert.Equal(t, "second", got[0].Content)
	assert.False(t, got[0].IsRemote)

	assert.Equal(t, models.KindFile, got[1].Kind)
	assert.True(t, got[1].IsRemote)
	assert.True(t, got[1].IsImportant)
	assert.Equal(t, int64(3), got[1].ByteSize)
	assert.NoError(t, got[1].Validate())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAll_EmptyIsNotNil(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT .* FROM vault_items`).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.SelectAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectAll_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("down"))

		_, err := repo.SelectAll(context.Background())
		require.ErrorContains(t, err, "failed to select documents")
	})

	t.Run("scan", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		rows := sqlmock.NewRows(columns).
			AddRow("x", "note", "", "", "not-a-number", "", "", false, created, created)
		mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

		_, err := repo.SelectAll(context.Background())
		require.ErrorContains(t, err, "failed to scan document row")
	})

	t.Run("iterate", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		rows := sqlmock.NewRows(columns).
			AddRow("x", "note", "", "", int64(0), "", "", false, created, created).
			RowError(0, errors.New("broken"))
		mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

		_, err := repo.SelectAll(context.Background())
		require.ErrorContains(t, err, "failed to iterate document rows")
	})
}

func TestDeleteByID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM vault_items WHERE id = \$1`).
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.DeleteByID(context.Background(), "n1"))

	mock.ExpectExec(`DELETE FROM vault_items`).WillReturnError(errors.New("nope"))
	require.ErrorContains(t, repo.DeleteByID(context.Background(), "n2"), "failed to delete document n2")

	require.NoError(t, mock.ExpectationsWereMet())
}
