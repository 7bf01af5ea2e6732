package domain

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

type AccountType int16

const (
	AccountTypeCash AccountType = iota
	AccountTypeChecking
	AccountTypeSavings
	AccountTypeCreditCard
	AccountTypeInvestment
)

func (t AccountType) Valid() bool {
	return t >= AccountTypeCash && t <= AccountTypeInvestment
}

type Account struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyID   int             `json:"currency_id"`
	CurrencyName string          `json:"currency,omitempty"`
	UserID       string          `json:"-"`
	Type         AccountType     `json:"account_type"`
}

func (a *Account) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" || utf8.RuneCountInString(a.Name) > 100 {
		return financeErrors.NewValidationError("Account name must be between 1 and 100 characters")
	}
	if !a.Type.Valid() {
		return financeErrors.NewValidationError("Account type must be between 0 and 4")
	}
	return nil
}

// BalanceCorrection records an account whose stored balance disagreed with
// the sum of its transactions.
type BalanceCorrection struct {
	AccountID int             `json:"account_id"`
	Stored    decimal.Decimal `json:"stored"`
	Computed  decimal.Decimal `json:"computed"`
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByIDForUser(ctx context.Context, id int, userID string) (*Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id int, userID string) error
	AdjustBalance(ctx context.Context, id int, delta decimal.Decimal) error
	ReconcileBalances(ctx context.Context) ([]BalanceCorrection, error)
}

// TxManager runs fn in one database transaction; repositories called with
// the ctx passed to fn take part in it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
