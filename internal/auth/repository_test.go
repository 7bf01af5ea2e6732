package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTwoFactorRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO user_two_factor_secrets`).WithArgs("u-1", "SECRET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveTwoFactorSecret(ctx, "u-1", "SECRET"))

	mock.ExpectQuery(`SELECT secret FROM user_two_factor_secrets`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"secret"}).AddRow("SECRET"))
	secret, err := repo.GetTwoFactorSecret(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "SECRET", secret)

	mock.ExpectQuery(`SELECT secret FROM user_two_factor_secrets`).WithArgs("u-2").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetTwoFactorSecret(ctx, "u-2")
	assert.ErrorIs(t, err, ErrTwoFactorNotRegistered)

	mock.ExpectExec(`UPDATE users`).WithArgs("u-3").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.EnableTwoFactor(ctx, "u-3"), ErrUserNotFound)

	mock.ExpectExec(`WITH removed AS`).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DisableTwoFactor(ctx, "u-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
