package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var movieCols = []string{"id", "name", "description", "image_url", "created_at"}

func TestMovieRepo_GetByName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER(?)")).
		WithArgs("dune").
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "Dune", nil, "https://img/dune.jpg", time.Now()))

	m, err := repo.GetByName(context.Background(), "  dune ")
	require.NoError(t, err)
	assert.Equal(t, "Dune", m.Name)
	assert.Empty(t, m.Description)
	assert.Equal(t, "https://img/dune.jpg", m.ImageURL)
}

func TestMovieRepo_GetByName_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	mock.ExpectQuery("FROM movies").WillReturnRows(sqlmock.NewRows(movieCols))

	_, err := repo.GetByName(context.Background(), "Unknown")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestMovieRepo_GetOrCreate_RaceOnInsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	mock.ExpectQuery("FROM movies WHERE LOWER").WillReturnRows(sqlmock.NewRows(movieCols))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).
		WithArgs("Oppenheimer", "", "").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery("FROM movies WHERE LOWER").
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(5, "Oppenheimer", "", "", time.Now()))

	m, err := repo.GetOrCreate(context.Background(), "Oppenheimer", "", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovieRepo_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM movies ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(movieCols).
			AddRow(1, "Dune", "", "", time.Now()).
			AddRow(2, "Oppenheimer", "", "", time.Now()))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
