package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountSelect = `
	SELECT a.id, a.name, a.balance, a.currency_id, c.name, a.user_id, a.account_type
	FROM accounts a
	JOIN currencies c ON c.id = a.currency_id`

func scanAccount(row interface{ Scan(dest ...any) error }) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Balance, &a.CurrencyID, &a.CurrencyName, &a.UserID, &a.Type); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (name, balance, currency_id, user_id, account_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		account.Name, account.Balance, account.CurrencyID, account.UserID, account.Type,
	).Scan(&account.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return financeErrors.ErrInvalidCurrency
		}
		return fmt.Errorf("could not create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByIDForUser(ctx context.Context, id int, userID string) (*domain.Account, error) {
	account, err := scanAccount(database.Conn(ctx, r.db).QueryRowContext(ctx,
		accountSelect+` WHERE a.id = $1 AND a.user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrNotFound
		}
		return nil, fmt.Errorf("could not find account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, accountSelect+` WHERE a.user_id = $1 ORDER BY a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `UPDATE accounts SET name = $3, account_type = $4 WHERE id = $1 AND user_id = $2`
	return r.execOne(ctx, "could not update account", query, account.ID, account.UserID, account.Name, account.Type)
}

func (r *AccountRepository) Delete(ctx context.Context, id int, userID string) error {
	return r.execOne(ctx, "could not delete account", `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, id int, delta decimal.Decimal) error {
	err := r.execOne(ctx, "could not adjust balance", `UPDATE accounts SET balance = balance + $2 WHERE id = $1`, id, delta)
	if database.IsNumericOutOfRange(err) {
		return financeErrors.NewValidationError("Account balance would be out of range")
	}
	return err
}

// ReconcileBalances rewrites every balance that differs from the signed sum
// of its transactions. It must run inside a transaction: the share lock keeps
// writers out until the corrections commit.
func (r *AccountRepository) ReconcileBalances(ctx context.Context) ([]domain.BalanceCorrection, error) {
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `LOCK TABLE transactions IN SHARE MODE`); err != nil {
		return nil, fmt.Errorf("could not lock transactions: %w", err)
	}

	query := `
		UPDATE accounts a
		SET balance = s.computed
		FROM (
			SELECT acc.id, acc.balance AS stored,
			       COALESCE(SUM(CASE WHEN t.transaction_type = 0 THEN t.amount ELSE -t.amount END), 0) AS computed
			FROM accounts acc
			LEFT JOIN transactions t ON t.account_id = acc.id
			GROUP BY acc.id, acc.balance
		) s
		WHERE a.id = s.id AND a.balance <> s.computed
		RETURNING a.id, s.stored, s.computed`
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not reconcile balances: %w", err)
	}
	defer rows.Close()

	corrections := []domain.BalanceCorrection{}
	for rows.Next() {
		var c domain.BalanceCorrection
		if err := rows.Scan(&c.AccountID, &c.Stored, &c.Computed); err != nil {
			return nil, fmt.Errorf("could not scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

func (r *AccountRepository) execOne(ctx context.Context, msg, query string, args ...any) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return financeErrors.ErrNotFound
	}
	return nil
}
