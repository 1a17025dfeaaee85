package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/redmonkez12/ai-data-assistant/internal/database"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "is_verified", "is_active",
	"verification_token", "verification_expires", "created_at", "updated_at", "last_login",
}

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db), mock
}

func newTestUser() *User {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := "tok-abc"
	exp := now.Add(24 * time.Hour)
	return &User{
		ID:                  uuid.New(),
		Username:            "alice",
		Email:               "alice@x.com",
		PasswordHash:        "$2a$10$hash",
		IsActive:            true,
		VerificationToken:   &tok,
		VerificationExpires: &exp,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), newTestUser()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{database.ConstraintUsersUsername, ErrDuplicateUsername},
		{database.ConstraintUsersEmail, ErrDuplicateEmail},
		{database.ConstraintUsersVerificationToken, ErrDuplicateToken},
	}

	for _, tc := range tests {
		t.Run(tc.constraint, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			mock.ExpectExec(`INSERT INTO "users"`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

			err := repo.Create(context.Background(), newTestUser())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRepository_Create_StoreFailure(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), newTestUser())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRepository_GetByIdentifier(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := newTestUser()

	rows := sqlmock.NewRows(userColumns).AddRow(
		u.ID.String(), u.Username, u.Email, u.PasswordHash, false, true,
		*u.VerificationToken, *u.VerificationExpires, u.CreatedAt, u.UpdatedAt, nil,
	)
	mock.ExpectQuery(`FROM "users" AS "u" WHERE .*username = 'alice' OR email = 'alice'`).
		WillReturnRows(rows)

	got, err := repo.GetByIdentifier(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@x.com", got.Email)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsVerified)
	require.NotNil(t, got.VerificationToken)
	assert.Equal(t, "tok-abc", *got.VerificationToken)
	assert.Nil(t, got.LastLogin)
}

func TestRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM "users" AS "u" WHERE .*email = 'ghost@x.com'`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetByUsername_StoreFailure(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM "users"`).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRepository_MarkVerified(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "users" .*SET is_verified = TRUE, verification_token = NULL, verification_expires = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkVerified(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConsumeVerificationToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "users" .*SET is_verified = TRUE, verification_token = NULL, verification_expires = NULL.*WHERE \(verification_token = 'tok-abc'\) AND \(is_verified = FALSE\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second consumer finds the token gone
	mock.ExpectExec(`UPDATE "users" .*WHERE \(verification_token = 'tok-abc'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ConsumeVerificationToken(context.Background(), id, "tok-abc"))
	assert.ErrorIs(t, repo.ConsumeVerificationToken(context.Background(), id, "tok-abc"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePassword_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), uuid.New(), "$2a$10$new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpdateVerificationToken_Collision(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: database.ConstraintUsersVerificationToken})

	err := repo.UpdateVerificationToken(context.Background(), uuid.New(), "dup", time.Now())
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestRepository_Count(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
