package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bptracker/internal/model"
	"bptracker/internal/repository"
)

var readingCols = []string{"id", "recorded_at", "systolic", "diastolic", "pulse", "photo_path", "created_at"}

func TestReadingPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	pulse := 72
	in := &model.Reading{
		Timestamp: now,
		Systolic:  120,
		Diastolic: 80,
		Pulse:     &pulse,
	}

	rows := sqlmock.NewRows(readingCols).
		AddRow(int64(1), now, 120, 80, 72, "", now)

	mock.ExpectQuery("INSERT INTO blood_pressure").
		WithArgs(now, 120, 80, sql.NullInt64{Int64: 72, Valid: true}, "").
		WillReturnRows(rows)

	out, err := repo.Create(ctx, in)

	assert.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, int64(1), out.ID)
	require.NotNil(t, out.Pulse)
	assert.Equal(t, 72, *out.Pulse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingPostgres_Create_NullPulse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(readingCols).
		AddRow(int64(2), now, 118, 76, nil, "", now)

	mock.ExpectQuery("INSERT INTO blood_pressure").
		WithArgs(now, 118, 76, sql.NullInt64{}, "").
		WillReturnRows(rows)

	out, err := repo.Create(context.Background(), &model.Reading{Timestamp: now, Systolic: 118, Diastolic: 76})

	assert.NoError(t, err)
	assert.Nil(t, out.Pulse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(readingCols).
			AddRow(int64(1), time.Now(), 120, 80, 72, "photos/a.jpg", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM blood_pressure WHERE id = ?").
			WithArgs(int64(1)).
			WillReturnRows(rows)

		r, err := repo.FindByID(ctx, 1)

		assert.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, int64(1), r.ID)
		assert.Equal(t, "photos/a.jpg", r.PhotoPath)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM blood_pressure WHERE id = ?").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		r, err := repo.FindByID(ctx, 99)

		assert.True(t, errors.Is(err, sql.ErrNoRows))
		assert.Nil(t, r)
	})
}

func TestReadingPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM blood_pressure`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows(readingCols).
		AddRow(int64(2), time.Now(), 130, 85, nil, "", time.Now()).
		AddRow(int64(1), time.Now().Add(-time.Hour), 120, 80, 72, "", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM blood_pressure ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(rows)

	res, err := repo.List(context.Background(), repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.Nil(t, res.Items[0].Pulse)
	require.NotNil(t, res.Items[1].Pulse)
	assert.Equal(t, 72, *res.Items[1].Pulse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingPostgres_FindAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)

	rows := sqlmock.NewRows(readingCols).
		AddRow(int64(1), time.Now(), 110, 70, 60, "", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM blood_pressure ORDER BY").
		WillReturnRows(rows)

	all, err := repo.FindAll(context.Background())

	assert.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)
	now := time.Now().UTC()

	t.Run("updated", func(t *testing.T) {
		mock.ExpectExec("UPDATE blood_pressure SET").
			WithArgs(now, 125, 82, sql.NullInt64{}, "", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), &model.Reading{
			ID: 1, Timestamp: now, Systolic: 125, Diastolic: 82,
		})
		assert.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE blood_pressure SET").
			WithArgs(now, 125, 82, sql.NullInt64{}, "", int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &model.Reading{
			ID: 42, Timestamp: now, Systolic: 125, Diastolic: 82,
		})
		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})
}

func TestReadingPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingPostgres(db)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM blood_pressure WHERE id = ?").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), 1))
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM blood_pressure WHERE id = ?").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Delete(context.Background(), 99))
	})
}
