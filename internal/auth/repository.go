package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
)

type TwoFactorRepository interface {
	SaveTwoFactorSecret(ctx context.Context, userID, secret string) error
	GetTwoFactorSecret(ctx context.Context, userID string) (string, error)
	EnableTwoFactor(ctx context.Context, userID string) error
	DisableTwoFactor(ctx context.Context, userID string) error
}

type twoFactorRepository struct {
	db *sql.DB
}

func NewTwoFactorRepository(db *sql.DB) TwoFactorRepository {
	return &twoFactorRepository{
		db: db,
	}
}

func (r *twoFactorRepository) SaveTwoFactorSecret(ctx context.Context, userID, secret string) error {
	query := `
		INSERT INTO user_two_factor_secrets (user_id, secret, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET secret = EXCLUDED.secret,
		    created_at = NOW()
	`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID, secret); err != nil {
		return fmt.Errorf("could not save two-factor secret: %w", err)
	}
	return nil
}

func (r *twoFactorRepository) GetTwoFactorSecret(ctx context.Context, userID string) (string, error) {
	var secret string
	query := `SELECT secret FROM user_two_factor_secrets WHERE user_id = $1`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTwoFactorNotRegistered
		}
		return "", fmt.Errorf("could not load two-factor secret: %w", err)
	}
	return secret, nil
}

func (r *twoFactorRepository) EnableTwoFactor(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET two_factor_enabled = TRUE,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("could not enable two-factor authentication: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DisableTwoFactor clears the flag and removes the secret in one statement.
func (r *twoFactorRepository) DisableTwoFactor(ctx context.Context, userID string) error {
	query := `
		WITH removed AS (
			DELETE FROM user_two_factor_secrets WHERE user_id = $1
		)
		UPDATE users
		SET two_factor_enabled = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("could not disable two-factor authentication: %w", err)
	}
	return nil
}
