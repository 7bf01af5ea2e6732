package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

type AccountInput struct {
	Name           string
	CurrencyID     int
	Type           domain.AccountType
	OpeningBalance decimal.Decimal
}

type AccountService struct {
	accounts     domain.AccountRepository
	currencies   domain.CurrencyRepository
	categories   domain.CategoryRepository
	transactions domain.TransactionRepository
	tx           domain.TxManager
	log          logrus.FieldLogger
}

func NewAccountService(
	accounts domain.AccountRepository,
	currencies domain.CurrencyRepository,
	categories domain.CategoryRepository,
	transactions domain.TransactionRepository,
	tx domain.TxManager,
	log logrus.FieldLogger,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		currencies:   currencies,
		categories:   categories,
		transactions: transactions,
		tx:           tx,
		log:          log,
	}
}

// Create opens an account. A non-zero opening balance is booked as an
// "Initial Balance" transaction so the balance stays equal to the sum of
// the account's transactions.
func (s *AccountService) Create(ctx context.Context, userID string, in AccountInput) (*domain.Account, error) {
	account := &domain.Account{
		Name:       in.Name,
		CurrencyID: in.CurrencyID,
		UserID:     userID,
		Type:       in.Type,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	currency, err := s.currencies.FindByID(ctx, in.CurrencyID)
	if err != nil {
		if errors.Is(err, financeErrors.ErrNotFound) {
			return nil, financeErrors.ErrInvalidCurrency
		}
		return nil, err
	}
	if !currency.VisibleTo(userID) {
		return nil, financeErrors.ErrInvalidCurrency
	}

	opening := in.OpeningBalance.Round(2)
	if opening.Abs().GreaterThanOrEqual(domain.MaxAmount) {
		return nil, financeErrors.NewValidationError("Opening balance must be less than 10000000000000000 in magnitude")
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		if opening.IsZero() {
			return nil
		}

		category, err := s.categories.FindGlobalByName(ctx, domain.InitialBalanceCategory)
		if err != nil {
			return fmt.Errorf("could not find %q category: %w", domain.InitialBalanceCategory, err)
		}
		transaction := &domain.Transaction{
			ID:         uuid.New(),
			Amount:     opening.Abs(),
			CategoryID: category.ID,
			AccountID:  account.ID,
			Type:       domain.TransactionTypeIncome,
			Reference:  "Opening balance",
		}
		if opening.IsNegative() {
			transaction.Type = domain.TransactionTypeExpense
		}
		if err := s.transactions.Create(ctx, transaction); err != nil {
			return err
		}
		return s.accounts.AdjustBalance(ctx, account.ID, transaction.SignedAmount())
	})
	if err != nil {
		return nil, err
	}

	account.Balance = opening
	account.CurrencyName = currency.Name
	s.log.WithFields(logrus.Fields{"user_id": userID, "account_id": account.ID}).Info("account created")
	return account, nil
}

func (s *AccountService) List(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}

func (s *AccountService) Get(ctx context.Context, userID string, id int) (*domain.Account, error) {
	return s.accounts.FindByIDForUser(ctx, id, userID)
}

func (s *AccountService) Update(ctx context.Context, userID string, id int, name string, accountType domain.AccountType) (*domain.Account, error) {
	account, err := s.accounts.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	account.Name = name
	account.Type = accountType
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes the account together with its transactions.
func (s *AccountService) Delete(ctx context.Context, userID string, id int) error {
	if err := s.accounts.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "account_id": id}).Info("account deleted")
	return nil
}
