package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
)

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{Username: "DrBob", PasswordHash: "hash", Role: model.RoleDoctor}

	mock.ExpectQuery(`INSERT INTO users \(username, password_hash, role\)`).
		WithArgs(u.Username, u.PasswordHash, string(u.Role)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(2)))
	id, err := r.Create(ctx, u)
	require.NoError(t, err)
	require.Equal(t, int64(2), id)

	mock.ExpectQuery(`INSERT INTO users \(username, password_hash, role\)`).
		WithArgs(u.Username, u.PasswordHash, string(u.Role)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT user_id, username, password_hash, role, created_at`).
		WithArgs("admin").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "password_hash", "role", "created_at"}).
			AddRow(int64(1), "admin", "hash", "admin", time.Now()))
	u, err := r.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", u.Username)
	require.Equal(t, model.RoleAdmin, u.Role)

	mock.ExpectQuery(`SELECT user_id, username, password_hash, role, created_at`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
