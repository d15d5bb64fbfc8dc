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

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash) VALUES (?,?,?)")).
		WithArgs("Sara", "sara@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	id, err := repo.Create(context.Background(), " Sara ", " Sara@Example.COM ", "hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	_, err = repo.Create(context.Background(), "Sara", "sara@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	cols := []string{"id", "name", "email", "password_hash", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery("FROM users WHERE email=").
		WithArgs("sara@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(12, "Sara", "sara@example.com", "hash", true, time.Now(), time.Now()))
	mock.ExpectQuery("FROM users WHERE email=").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := repo.GetByEmail(context.Background(), "SARA@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), u.ID)
	assert.True(t, u.IsActive)

	_, err = repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
