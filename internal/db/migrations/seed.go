package migrations

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const defaultSeedBcryptCost = 12

// SeedOptions configures the accounts written by the seed migrations.
// An empty password is replaced by a random one that is never printed.
type SeedOptions struct {
	AdminPassword string
	UserPassword  string
	DemoPassword  string
	BcryptCost    int
}

type seedUser struct {
	ID        string
	UserName  string
	Email     string
	FirstName string
	LastName  string
}

var (
	seedCreatedAt = time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

	demoUser   = seedUser{ID: "1f0d2c4e-6a8b-4c3d-9e5f-7a1b2c3d4e5f", UserName: "demo", Email: "demo@financeledger.local", FirstName: "Demo", LastName: "User"}
	sampleUser = seedUser{ID: "2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d", UserName: "sample", Email: "sample@financeledger.local", FirstName: "Sample", LastName: "User"}
	testUser1  = seedUser{ID: "3c4d5e6f-7a8b-4c9d-8e1f-2a3b4c5d6e7f", UserName: "test1", Email: "test1@financeledger.local", FirstName: "Test", LastName: "One"}
	testUser2  = seedUser{ID: "4d5e6f7a-8b9c-4d0e-9f2a-3b4c5d6e7f8a", UserName: "test2", Email: "test2@financeledger.local", FirstName: "Test", LastName: "Two"}

	// The two retained demo rows after test users were removed.
	adminUser = seedUser{ID: demoUser.ID, UserName: "admin", Email: "admin@financeledger.local", FirstName: "Admin", LastName: ""}
	namedUser = seedUser{ID: sampleUser.ID, UserName: "jane.doe", Email: "jane.doe@financeledger.local", FirstName: "Jane", LastName: "Doe"}

	seedCategories = []string{"Food", "Shopping", "Housing", "Transportation", "Entertainment", "Health", "Salary"}
	seedCurrencies = []string{"USD", "EUR", "GBP", "PLN"}
)

type seeder struct {
	opts SeedOptions
}

func newSeeder(opts SeedOptions) *seeder {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = defaultSeedBcryptCost
	}
	return &seeder{opts: opts}
}

func (s *seeder) seedDemoDataUp(ctx context.Context, tx *sql.Tx) error {
	for _, u := range []seedUser{demoUser, sampleUser, testUser1, testUser2} {
		if err := s.insertUser(ctx, tx, u, s.opts.DemoPassword); err != nil {
			return err
		}
	}
	for _, name := range seedCategories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO category_transactions (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	for _, name := range seedCurrencies {
		if _, err := tx.ExecContext(ctx, `INSERT INTO currency_types (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed currency %q: %w", name, err)
		}
	}
	return nil
}

func (s *seeder) seedDemoDataDown(ctx context.Context, tx *sql.Tx) error {
	ids := []string{demoUser.ID, sampleUser.ID, testUser1.ID, testUser2.ID}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id::text = ANY($1)`, ids); err != nil {
		return fmt.Errorf("remove seeded users: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_transactions WHERE name = ANY($1)`, seedCategories); err != nil {
		return fmt.Errorf("remove seeded categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM currency_types WHERE name = ANY($1)`, seedCurrencies); err != nil {
		return fmt.Errorf("remove seeded currencies: %w", err)
	}
	return nil
}

func (s *seeder) repurposeAccountsUp(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id::text = ANY($1)`, []string{testUser1.ID, testUser2.ID}); err != nil {
		return fmt.Errorf("remove test users: %w", err)
	}
	if err := s.renameUser(ctx, tx, adminUser, s.opts.AdminPassword); err != nil {
		return err
	}
	return s.renameUser(ctx, tx, namedUser, s.opts.UserPassword)
}

func (s *seeder) repurposeAccountsDown(ctx context.Context, tx *sql.Tx) error {
	if err := s.renameUser(ctx, tx, sampleUser, ""); err != nil {
		return err
	}
	if err := s.renameUser(ctx, tx, demoUser, ""); err != nil {
		return err
	}
	for _, u := range []seedUser{testUser1, testUser2} {
		if err := s.insertUser(ctx, tx, u, s.opts.DemoPassword); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) insertUser(ctx context.Context, tx *sql.Tx, u seedUser, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	securityStamp, err := randomStamp()
	if err != nil {
		return err
	}
	concurrencyStamp, err := randomStamp()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, user_name, normalized_user_name, email, normalized_email, email_confirmed,
		                   password_hash, security_stamp, concurrency_stamp, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $10, $11, $11)`,
		u.ID, u.UserName, normalize(u.UserName), u.Email, normalize(u.Email),
		hash, securityStamp, concurrencyStamp, u.FirstName, u.LastName, seedCreatedAt,
	)
	if err != nil {
		return fmt.Errorf("seed user %s: %w", u.UserName, err)
	}
	return nil
}

// renameUser rewrites the identity fields of an existing seed row. A non-empty
// password also replaces the hash and rotates the security stamp.
func (s *seeder) renameUser(ctx context.Context, tx *sql.Tx, u seedUser, password string) error {
	concurrencyStamp, err := randomStamp()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET user_name = $2, normalized_user_name = $3, email = $4, normalized_email = $5,
		    first_name = $6, last_name = $7, concurrency_stamp = $8, updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.UserName, normalize(u.UserName), u.Email, normalize(u.Email), u.FirstName, u.LastName, concurrencyStamp,
	)
	if err != nil {
		return fmt.Errorf("update seed user %s: %w", u.UserName, err)
	}
	if password == "" {
		return nil
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	securityStamp, err := randomStamp()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $2, security_stamp = $3 WHERE id = $1`, u.ID, hash, securityStamp); err != nil {
		return fmt.Errorf("set password for seed user %s: %w", u.UserName, err)
	}
	return nil
}

func (s *seeder) hash(password string) (string, error) {
	if password == "" {
		random, err := randomStamp()
		if err != nil {
			return "", err
		}
		password = random
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	return string(h), nil
}

func randomStamp() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate stamp: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
