package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrNoVerificationCode = errors.New("no verification code")
)

type VerificationCode struct {
	UserID    string
	Code      string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByNormalizedLogin(ctx context.Context, normalized string) (*User, error)
	FindByNormalizedNameOrEmail(ctx context.Context, normalizedName, normalizedEmail string) (*User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput, newConcurrencyStamp string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash, securityStamp string) error
	IncrementAccessFailed(ctx context.Context, id string, threshold int, lockoutEnd time.Time) (int, *time.Time, error)
	ResetAccessFailed(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	SaveVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	GetVerificationCode(ctx context.Context, userID string) (*VerificationCode, error)
	IncrementVerificationAttempts(ctx context.Context, userID string) (int, error)
	ConfirmEmail(ctx context.Context, userID, newConcurrencyStamp string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

const userColumns = `id, user_name, normalized_user_name, email, normalized_email, email_confirmed,
	password_hash, security_stamp, concurrency_stamp, first_name, last_name, phone_number,
	phone_number_confirmed, two_factor_enabled, lockout_enabled, lockout_end, access_failed_count,
	created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		u          User
		lockoutEnd sql.NullTime
	)
	err := row.Scan(&u.ID, &u.UserName, &u.NormalizedUserName, &u.Email, &u.NormalizedEmail, &u.EmailConfirmed,
		&u.PasswordHash, &u.SecurityStamp, &u.ConcurrencyStamp, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.PhoneNumberConfirmed, &u.TwoFactorEnabled, &u.LockoutEnabled, &lockoutEnd, &u.AccessFailedCount,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lockoutEnd.Valid {
		t := lockoutEnd.Time
		u.LockoutEnd = &t
	}
	return &u, nil
}

func (r *userRepository) queryOne(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, user_name, normalized_user_name, email, normalized_email, password_hash,
			security_stamp, concurrency_stamp, first_name, last_name, lockout_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		user.ID, user.UserName, user.NormalizedUserName, user.Email, user.NormalizedEmail, user.PasswordHash,
		user.SecurityStamp, user.ConcurrencyStamp, user.FirstName, user.LastName,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}
	user.LockoutEnabled = true
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByNormalizedLogin(ctx context.Context, normalized string) (*User, error) {
	return r.queryOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE normalized_user_name = $1 OR normalized_email = $1 LIMIT 1`,
		normalized)
}

func (r *userRepository) FindByNormalizedNameOrEmail(ctx context.Context, normalizedName, normalizedEmail string) (*User, error) {
	return r.queryOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE normalized_user_name = $1 OR normalized_email = $2 LIMIT 1`,
		normalizedName, normalizedEmail)
}

// UpdateProfile writes the profile only when the stored concurrency stamp
// still matches in.ConcurrencyStamp. It reports whether a row was updated.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, in ProfileInput, newConcurrencyStamp string) (bool, error) {
	query := `
		UPDATE users
		SET first_name = $2,
		    last_name = $3,
		    phone_number_confirmed = CASE WHEN phone_number = $4 THEN phone_number_confirmed ELSE FALSE END,
		    phone_number = $4,
		    concurrency_stamp = $5,
		    updated_at = NOW()
		WHERE id = $1 AND concurrency_stamp = $6
	`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		id, in.FirstName, in.LastName, in.PhoneNumber, newConcurrencyStamp, in.ConcurrencyStamp)
	if err != nil {
		return false, fmt.Errorf("could not update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not update profile: %w", err)
	}
	return n == 1, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash, securityStamp string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    security_stamp = $3,
		    access_failed_count = 0,
		    lockout_end = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "could not update user password", query, id, passwordHash, securityStamp)
}

// IncrementAccessFailed bumps the failure counter. Reaching threshold sets
// lockout_end and clears the counter for the next window.
func (r *userRepository) IncrementAccessFailed(ctx context.Context, id string, threshold int, lockoutEnd time.Time) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET lockout_end = CASE
		        WHEN lockout_enabled AND access_failed_count + 1 >= $2 THEN $3
		        ELSE lockout_end END,
		    access_failed_count = CASE
		        WHEN lockout_enabled AND access_failed_count + 1 >= $2 THEN 0
		        ELSE access_failed_count + 1 END
		WHERE id = $1
		RETURNING access_failed_count, lockout_end
	`
	var (
		count int
		end   sql.NullTime
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, id, threshold, lockoutEnd).Scan(&count, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, fmt.Errorf("could not record failed login: %w", err)
	}
	if !end.Valid {
		return count, nil, nil
	}
	return count, &end.Time, nil
}

func (r *userRepository) ResetAccessFailed(ctx context.Context, id string) error {
	query := `UPDATE users SET access_failed_count = 0, lockout_end = NULL WHERE id = $1`
	return r.execOne(ctx, "could not reset failed logins", query, id)
}

// Delete removes the user's accounts before the user row. Accounts reference
// the user's currencies with ON DELETE RESTRICT, so they must be gone before
// the currency cascade runs. Call it inside a transaction.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM accounts WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("could not delete user accounts: %w", err)
	}
	return r.execOne(ctx, "could not delete user", `DELETE FROM users WHERE id = $1`, id)
}

// SaveVerificationCode replaces any earlier code for the user.
func (r *userRepository) SaveVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	query := `
		INSERT INTO user_email_verification_codes (user_id, code, attempts, expires_at, created_at)
		VALUES ($1, $2, 0, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET code = EXCLUDED.code,
		    attempts = 0,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID, code, expiresAt); err != nil {
		return fmt.Errorf("could not save verification code: %w", err)
	}
	return nil
}

func (r *userRepository) GetVerificationCode(ctx context.Context, userID string) (*VerificationCode, error) {
	query := `
		SELECT user_id, code, attempts, expires_at, created_at
		FROM user_email_verification_codes
		WHERE user_id = $1
	`
	var vc VerificationCode
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID).
		Scan(&vc.UserID, &vc.Code, &vc.Attempts, &vc.ExpiresAt, &vc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoVerificationCode
		}
		return nil, fmt.Errorf("could not get verification code: %w", err)
	}
	return &vc, nil
}

func (r *userRepository) IncrementVerificationAttempts(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE user_email_verification_codes
		SET attempts = attempts + 1
		WHERE user_id = $1
		RETURNING attempts
	`
	var attempts int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoVerificationCode
		}
		return 0, fmt.Errorf("could not record verification attempt: %w", err)
	}
	return attempts, nil
}

// ConfirmEmail marks the email confirmed, rotates the concurrency stamp and
// consumes the verification code in one statement.
func (r *userRepository) ConfirmEmail(ctx context.Context, userID, newConcurrencyStamp string) error {
	query := `
		WITH used AS (
			DELETE FROM user_email_verification_codes WHERE user_id = $1
		)
		UPDATE users
		SET email_confirmed = TRUE,
		    concurrency_stamp = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "could not confirm email", query, userID, newConcurrencyStamp)
}

func (r *userRepository) execOne(ctx context.Context, msg, query string, args ...any) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
