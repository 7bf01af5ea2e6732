package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

const defaultPageSize = 50

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `t.id, t.amount, t.category_id, t.account_id, t.transaction_type, t.reference, t.created_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(&t.ID, &t.Amount, &t.CategoryID, &t.AccountID, &t.Type, &t.Reference, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func mapWriteError(err error, msg string) error {
	switch {
	case database.IsUniqueViolation(err):
		return financeErrors.ErrConflict
	case database.IsForeignKeyViolation(err):
		if strings.Contains(database.ConstraintName(err), "categor") {
			return financeErrors.ErrInvalidCategory
		}
		return financeErrors.ErrInvalidAccount
	case database.IsNumericOutOfRange(err):
		return financeErrors.NewValidationError("Amount must be less than 10000000000000000")
	case database.IsCheckViolation(err):
		if database.ConstraintName(err) == "ck_transactions_type" {
			return financeErrors.NewValidationError("Type must be 0 (income) or 1 (expense)")
		}
		return financeErrors.NewValidationError("Amount must be greater than zero")
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Create inserts the transaction. A zero CreatedAt lets the database stamp it.
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, amount, category_id, account_id, transaction_type, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		RETURNING created_at`
	createdAt := sql.NullTime{Time: transaction.CreatedAt, Valid: !transaction.CreatedAt.IsZero()}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		transaction.ID, transaction.Amount, transaction.CategoryID, transaction.AccountID,
		transaction.Type, transaction.Reference, createdAt,
	).Scan(&transaction.CreatedAt)
	if err != nil {
		return mapWriteError(err, "could not create transaction")
	}
	return nil
}

const transactionByIDQuery = `SELECT ` + transactionColumns + `
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	WHERE t.id = $1 AND a.user_id = $2`

func (r *TransactionRepository) FindByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Transaction, error) {
	return r.findOne(ctx, transactionByIDQuery, id, userID)
}

func (r *TransactionRepository) LockByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Transaction, error) {
	return r.findOne(ctx, transactionByIDQuery+` FOR UPDATE OF t`, id, userID)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Transaction, error) {
	transaction, err := scanTransaction(database.Conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrNotFound
		}
		return nil, fmt.Errorf("could not find transaction: %w", err)
	}
	return transaction, nil
}

// List pages through the user's transactions, newest first.
func (r *TransactionRepository) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var (
		conditions = []string{"a.user_id = $1"}
		args       = []any{userID}
	)
	addCondition := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}
	if filter.AccountID != nil {
		addCondition("t.account_id = $%d", *filter.AccountID)
	}
	if filter.Type != nil {
		addCondition("t.transaction_type = $%d", *filter.Type)
	}
	if !filter.From.IsZero() {
		addCondition("t.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		addCondition("t.created_at < $%d", filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf(`SELECT %s
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE %s
		ORDER BY t.created_at DESC, t.id
		LIMIT $%d OFFSET $%d`, transactionColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan transaction: %w", err)
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $2, category_id = $3, account_id = $4, transaction_type = $5, reference = $6, created_at = $7
		WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		transaction.ID, transaction.Amount, transaction.CategoryID, transaction.AccountID,
		transaction.Type, transaction.Reference, transaction.CreatedAt)
	if err != nil {
		return mapWriteError(err, "could not update transaction")
	}
	return expectOneRow(res, "could not update transaction")
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete transaction: %w", err)
	}
	return expectOneRow(res, "could not delete transaction")
}

func (r *TransactionRepository) SummaryEntries(ctx context.Context, userID string, from, to time.Time) ([]domain.SummaryEntry, error) {
	query := `
		SELECT c.name, t.transaction_type, t.amount, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN currencies c ON c.id = a.currency_id
		WHERE a.user_id = $1 AND t.created_at >= $2 AND t.created_at < $3
		ORDER BY t.created_at`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not load transactions for summary: %w", err)
	}
	defer rows.Close()

	entries := []domain.SummaryEntry{}
	for rows.Next() {
		var e domain.SummaryEntry
		if err := rows.Scan(&e.Currency, &e.Type, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan summary entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *TransactionRepository) SummaryByCategory(ctx context.Context, userID string, from, to time.Time, transactionType *domain.TransactionType) ([]domain.CategorySummary, error) {
	args := []any{userID, from, to}
	typeCondition := ""
	if transactionType != nil {
		args = append(args, *transactionType)
		typeCondition = " AND t.transaction_type = $4"
	}
	query := `
		SELECT cat.id, cat.name, cur.name, SUM(t.amount), COUNT(*)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN categories cat ON cat.id = t.category_id
		JOIN currencies cur ON cur.id = a.currency_id
		WHERE a.user_id = $1 AND t.created_at >= $2 AND t.created_at < $3` + typeCondition + `
		GROUP BY cat.id, cat.name, cur.name
		ORDER BY cur.name, SUM(t.amount) DESC, cat.name`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not summarize by category: %w", err)
	}
	defer rows.Close()

	summaries := []domain.CategorySummary{}
	for rows.Next() {
		var s domain.CategorySummary
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.Currency, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("could not scan category summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func expectOneRow(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return financeErrors.ErrNotFound
	}
	return nil
}
