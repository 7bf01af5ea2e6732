package domain

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

// MaxAmount is the smallest magnitude that no longer fits numeric(18,2).
var MaxAmount = decimal.New(1, 16)

type TransactionType int16

const (
	TransactionTypeIncome  TransactionType = 0
	TransactionTypeExpense TransactionType = 1
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

func (t TransactionType) String() string {
	if t == TransactionTypeIncome {
		return "income"
	}
	return "expense"
}

// ParseTransactionType accepts "income", "expense" or "" (any type).
func ParseTransactionType(s string) (*TransactionType, bool) {
	switch s {
	case "":
		return nil, true
	case "income", "0":
		t := TransactionTypeIncome
		return &t, true
	case "expense", "1":
		t := TransactionTypeExpense
		return &t, true
	}
	return nil, false
}

const maxReferenceLength = 200

type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID int             `json:"category_id"`
	AccountID  int             `json:"account_id"`
	Type       TransactionType `json:"transaction_type"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = t.Amount.Round(2)
}

// SignedAmount is the transaction's effect on its account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return financeErrors.NewValidationError("Amount must be greater than zero")
	}
	if t.Amount.GreaterThanOrEqual(MaxAmount) {
		return financeErrors.NewValidationError("Amount must be less than 10000000000000000")
	}
	if !t.Type.Valid() {
		return financeErrors.NewValidationError("Type must be 0 (income) or 1 (expense)")
	}
	if utf8.RuneCountInString(t.Reference) > maxReferenceLength {
		return financeErrors.NewValidationError("Reference must be at most 200 characters")
	}
	if t.CategoryID <= 0 {
		return financeErrors.ErrInvalidCategory
	}
	if t.AccountID <= 0 {
		return financeErrors.ErrInvalidAccount
	}
	return nil
}

type TransactionFilter struct {
	AccountID *int
	Type      *TransactionType
	From      time.Time
	To        time.Time
	Limit     int
	Page      int
}

// SummaryEntry is one transaction as seen by the period summary.
type SummaryEntry struct {
	Currency  string
	Type      TransactionType
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type CategorySummary struct {
	CategoryID   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error
	FindByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*Transaction, error)
	// LockByIDForUser is FindByIDForUser holding a row lock until the
	// surrounding transaction ends.
	LockByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*Transaction, error)
	List(ctx context.Context, userID string, filter TransactionFilter) ([]Transaction, error)
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	SummaryEntries(ctx context.Context, userID string, from, to time.Time) ([]SummaryEntry, error)
	SummaryByCategory(ctx context.Context, userID string, from, to time.Time, transactionType *TransactionType) ([]CategorySummary, error)
}
