package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

type TransactionService struct {
	transactions domain.TransactionRepository
	accounts     domain.AccountRepository
	categories   domain.CategoryRepository
	tx           domain.TxManager
	log          logrus.FieldLogger
}

func NewTransactionService(
	transactions domain.TransactionRepository,
	accounts domain.AccountRepository,
	categories domain.CategoryRepository,
	tx domain.TxManager,
	log logrus.FieldLogger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		tx:           tx,
		log:          log,
	}
}

type TransactionSummary struct {
	Year         int                     `json:"year"`
	IncomeTotal  decimal.Decimal         `json:"income_total"`
	ExpenseTotal decimal.Decimal         `json:"expense_total"`
	Months       map[string]MonthSummary `json:"months"`
}

type MonthSummary struct {
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	Weeks        []WeekSummary   `json:"weeks"`
}

type WeekSummary struct {
	Week         int             `json:"week"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
}

func prepare(transaction *domain.Transaction) error {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	transaction.RoundToTwoDecimalPlaces()
	return transaction.Validate()
}

func (s *TransactionService) checkCategory(ctx context.Context, userID string, categoryID int) error {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, financeErrors.ErrNotFound) {
			return financeErrors.ErrInvalidCategory
		}
		return err
	}
	if !category.VisibleTo(userID) {
		return financeErrors.ErrInvalidCategory
	}
	return nil
}

func (s *TransactionService) checkAccount(ctx context.Context, userID string, accountID int) error {
	if _, err := s.accounts.FindByIDForUser(ctx, accountID, userID); err != nil {
		if errors.Is(err, financeErrors.ErrNotFound) {
			return financeErrors.ErrInvalidAccount
		}
		return err
	}
	return nil
}

// Create books a single transaction and moves its account balance in the same SQL transaction.
func (s *TransactionService) Create(ctx context.Context, userID string, transaction *domain.Transaction) error {
	if err := prepare(transaction); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, userID, transaction.CategoryID); err != nil {
		return err
	}
	if err := s.checkAccount(ctx, userID, transaction.AccountID); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.transactions.Create(ctx, transaction); err != nil {
			return err
		}
		return s.accounts.AdjustBalance(ctx, transaction.AccountID, transaction.SignedAmount())
	})
}

// CreateBulk stores all transactions or none. Every invalid entry is
// reported with its 1-based position.
func (s *TransactionService) CreateBulk(ctx context.Context, userID string, transactions []*domain.Transaction) error {
	categories, err := s.categories.ListVisible(ctx, userID)
	if err != nil {
		return err
	}
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	categoryMap := make(map[int]bool, len(categories))
	for _, category := range categories {
		categoryMap[category.ID] = true
	}
	accountMap := make(map[int]bool, len(accounts))
	for _, account := range accounts {
		accountMap[account.ID] = true
	}

	validationErrors := &financeErrors.ValidationErrors{}
	for i, transaction := range transactions {
		if err := prepare(transaction); err != nil {
			validationErrors.Add(financeErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		if !categoryMap[transaction.CategoryID] {
			validationErrors.Add(financeErrors.NewIndexedValidationError(i+1, financeErrors.ErrInvalidCategory.Error()))
			continue
		}
		if !accountMap[transaction.AccountID] {
			validationErrors.Add(financeErrors.NewIndexedValidationError(i+1, financeErrors.ErrInvalidAccount.Error()))
		}
	}
	if len(validationErrors.Errors) > 0 {
		return validationErrors
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deltas := make(map[int]decimal.Decimal)
		for _, transaction := range transactions {
			if err := s.transactions.Create(ctx, transaction); err != nil {
				return err
			}
			deltas[transaction.AccountID] = deltas[transaction.AccountID].Add(transaction.SignedAmount())
		}
		return s.adjustBalances(ctx, deltas)
	})
}

// adjustBalances applies deltas in account id order so concurrent writers
// lock account rows in the same sequence.
func (s *TransactionService) adjustBalances(ctx context.Context, deltas map[int]decimal.Decimal) error {
	accountIDs := make([]int, 0, len(deltas))
	for id := range deltas {
		accountIDs = append(accountIDs, id)
	}
	sort.Ints(accountIDs)
	for _, id := range accountIDs {
		if err := s.accounts.AdjustBalance(ctx, id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactions.FindByIDForUser(ctx, id, userID)
}

func (s *TransactionService) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	transactions, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []domain.Transaction{}, nil
	}
	return transactions, nil
}

// Update replaces a transaction, undoing its old effect on the balance
// before applying the new one. The account may change.
func (s *TransactionService) Update(ctx context.Context, userID string, transaction *domain.Transaction) error {
	if transaction.ID == uuid.Nil {
		return financeErrors.ErrNotFound
	}
	if err := prepare(transaction); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, userID, transaction.CategoryID); err != nil {
		return err
	}
	if err := s.checkAccount(ctx, userID, transaction.AccountID); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.LockByIDForUser(ctx, transaction.ID, userID)
		if err != nil {
			return err
		}
		if transaction.CreatedAt.IsZero() {
			transaction.CreatedAt = existing.CreatedAt
		}
		if err := s.transactions.Update(ctx, transaction); err != nil {
			return err
		}
		if existing.AccountID == transaction.AccountID {
			return s.accounts.AdjustBalance(ctx, transaction.AccountID, transaction.SignedAmount().Sub(existing.SignedAmount()))
		}

		deltas := map[int]decimal.Decimal{
			existing.AccountID:    existing.SignedAmount().Neg(),
			transaction.AccountID: transaction.SignedAmount(),
		}
		return s.adjustBalances(ctx, deltas)
	})
}

func (s *TransactionService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.LockByIDForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := s.transactions.Delete(ctx, id); err != nil {
			return err
		}
		return s.accounts.AdjustBalance(ctx, existing.AccountID, existing.SignedAmount().Neg())
	})
}

// Summary totals income and expense per currency, then per year, month and
// ISO week. Amounts in different currencies are never added together.
func (s *TransactionService) Summary(ctx context.Context, userID string, startDate, endDate time.Time) (map[string]map[int]TransactionSummary, error) {
	entries, err := s.transactions.SummaryEntries(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]map[int]TransactionSummary)

	for _, entry := range entries {
		// Buckets follow the UTC calendar, like the date range bounds.
		createdAt := entry.CreatedAt.UTC()
		year := createdAt.Year()
		month := createdAt.Month().String()
		_, week := createdAt.ISOWeek()

		years, exists := summary[entry.Currency]
		if !exists {
			years = make(map[int]TransactionSummary)
			summary[entry.Currency] = years
		}

		yearSummary, exists := years[year]
		if !exists {
			yearSummary = TransactionSummary{
				Year:   year,
				Months: make(map[string]MonthSummary),
			}
		}

		monthSummary, exists := yearSummary.Months[month]
		if !exists {
			monthSummary = MonthSummary{Weeks: []WeekSummary{}}
		}

		weekIndex := -1
		for i, weekSummary := range monthSummary.Weeks {
			if weekSummary.Week == week {
				weekIndex = i
				break
			}
		}
		if weekIndex < 0 {
			monthSummary.Weeks = append(monthSummary.Weeks, WeekSummary{Week: week})
			weekIndex = len(monthSummary.Weeks) - 1
		}
		weekSummary := &monthSummary.Weeks[weekIndex]

		switch entry.Type {
		case domain.TransactionTypeIncome:
			yearSummary.IncomeTotal = yearSummary.IncomeTotal.Add(entry.Amount)
			monthSummary.IncomeTotal = monthSummary.IncomeTotal.Add(entry.Amount)
			weekSummary.IncomeTotal = weekSummary.IncomeTotal.Add(entry.Amount)
		case domain.TransactionTypeExpense:
			yearSummary.ExpenseTotal = yearSummary.ExpenseTotal.Add(entry.Amount)
			monthSummary.ExpenseTotal = monthSummary.ExpenseTotal.Add(entry.Amount)
			weekSummary.ExpenseTotal = weekSummary.ExpenseTotal.Add(entry.Amount)
		}

		yearSummary.Months[month] = monthSummary
		years[year] = yearSummary
	}

	return summary, nil
}

func (s *TransactionService) SummaryByCategory(ctx context.Context, userID string, startDate, endDate time.Time, transactionType *domain.TransactionType) ([]domain.CategorySummary, error) {
	summaries, err := s.transactions.SummaryByCategory(ctx, userID, startDate, endDate, transactionType)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		return []domain.CategorySummary{}, nil
	}
	return summaries, nil
}
