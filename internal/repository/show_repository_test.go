package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestShowRepo_ResolveOrCreate_Existing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shows WHERE movie_id = ? AND location = ? AND show_time = ?")).
		WithArgs(uint64(3), "Riyadh Park", "19:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := repo.ResolveOrCreate(context.Background(), 3, "Riyadh Park", "19:30", "IMAX")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_ResolveOrCreate_Creates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shows")).
		WithArgs(uint64(3), "Riyadh Park", "19:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)")).
		WithArgs(uint64(3), "Riyadh Park", "19:30", "IMAX", model.DefaultTotalSeats, model.DefaultTotalSeats).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := repo.ResolveOrCreate(context.Background(), 3, "Riyadh Park", "19:30", "IMAX")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_ResolveOrCreate_LookupError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shows")).WillReturnError(errors.New("connection reset"))

	_, err := repo.ResolveOrCreate(context.Background(), 3, "Jeddah", "21:00", "Standard Hall")
	assert.ErrorContains(t, err, "lookup show")
}

func TestShowRepo_ReserveSeats(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "enough seats", affected: 1, want: true},
		{name: "not enough seats", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewShowRepo(db)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET available_seats = available_seats - ?")).
				WithArgs(2, uint64(7), 2).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.ReserveSeats(context.Background(), 7, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestShowRepo_ReserveSeats_RejectsZero(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	ok, err := repo.ReserveSeats(context.Background(), 7, 0)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_ReserveSeats_DriverError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec("UPDATE shows").WillReturnError(errors.New("lock wait timeout"))

	ok, err := repo.ReserveSeats(context.Background(), 7, 1)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "lock wait timeout")
}

func TestShowRepo_ReleaseSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET available_seats = available_seats + ?")).
		WithArgs(3, uint64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseSeats(context.Background(), 7, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_ReleaseSeats_OverCapacity(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec("UPDATE shows").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "location", "show_time", "hall_type", "total_seats", "available_seats", "created_at"}).
			AddRow(7, 3, "Riyadh Park", "19:30", "IMAX", 100, 100, time.Now()))

	assert.ErrorIs(t, repo.ReleaseSeats(context.Background(), 7, 1), ErrConflict)
}

func TestShowRepo_ReleaseSeats_UnknownShow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec("UPDATE shows").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM shows WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	assert.ErrorIs(t, repo.ReleaseSeats(context.Background(), 99, 1), ErrShowNotFound)
}

func TestShowRepo_AvailableSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT available_seats FROM shows WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(42))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT available_seats FROM shows WHERE id = ?")).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}))

	n, err := repo.AvailableSeats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	// unknown shows report zero seats instead of failing
	n, err = repo.AvailableSeats(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery("FROM shows WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrShowNotFound)
}
