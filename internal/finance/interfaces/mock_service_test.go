package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sebuszqo/FinanceLedger/internal/finance/application"
	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type MockCategoryService struct {
	categories []domain.Category
	err        error
	lastUserID string
	lastID     int
	lastName   string
}

func (m *MockCategoryService) List(_ context.Context, userID string) ([]domain.Category, error) {
	m.lastUserID = userID
	return m.categories, m.err
}

func (m *MockCategoryService) Create(_ context.Context, userID, name string) (*domain.Category, error) {
	m.lastUserID, m.lastName = userID, name
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Category{ID: 42, Name: name, UserID: &userID}, nil
}

func (m *MockCategoryService) Rename(_ context.Context, userID string, id int, name string) (*domain.Category, error) {
	m.lastUserID, m.lastID, m.lastName = userID, id, name
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Category{ID: id, Name: name, UserID: &userID}, nil
}

func (m *MockCategoryService) Delete(_ context.Context, userID string, id int) error {
	m.lastUserID, m.lastID = userID, id
	return m.err
}

type MockCurrencyService struct {
	err      error
	lastName string
}

func (m *MockCurrencyService) List(_ context.Context, _ string) ([]domain.Currency, error) {
	return []domain.Currency{{ID: 1, Name: "USD"}}, m.err
}

func (m *MockCurrencyService) Create(_ context.Context, userID, code string) (*domain.Currency, error) {
	m.lastName = code
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Currency{ID: 9, Name: code, UserID: &userID}, nil
}

func (m *MockCurrencyService) Rename(_ context.Context, userID string, id int, code string) (*domain.Currency, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Currency{ID: id, Name: code, UserID: &userID}, nil
}

func (m *MockCurrencyService) Delete(_ context.Context, _ string, _ int) error {
	return m.err
}

type MockAccountService struct {
	err       error
	lastInput application.AccountInput
}

func (m *MockAccountService) Create(_ context.Context, userID string, in application.AccountInput) (*domain.Account, error) {
	m.lastInput = in
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Account{ID: 5, Name: in.Name, Balance: in.OpeningBalance, CurrencyID: in.CurrencyID, UserID: userID, Type: in.Type}, nil
}

func (m *MockAccountService) List(_ context.Context, userID string) ([]domain.Account, error) {
	return []domain.Account{{ID: 1, Name: "Wallet", UserID: userID}}, m.err
}

func (m *MockAccountService) Get(_ context.Context, userID string, id int) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Account{ID: id, Name: "Wallet", UserID: userID}, nil
}

func (m *MockAccountService) Update(_ context.Context, userID string, id int, name string, accountType domain.AccountType) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Account{ID: id, Name: name, UserID: userID, Type: accountType}, nil
}

func (m *MockAccountService) Delete(_ context.Context, _ string, _ int) error {
	return m.err
}

type MockTransactionService struct {
	err        error
	lastFilter domain.TransactionFilter
	lastType   *domain.TransactionType
	lastFrom   time.Time
	lastTo     time.Time
	bulkCount  int
	updatedID  uuid.UUID
}

func (m *MockTransactionService) Create(_ context.Context, _ string, transaction *domain.Transaction) error {
	if m.err != nil {
		return m.err
	}
	transaction.ID = uuid.MustParse("6f1c2d3e-4a5b-4c6d-8e7f-9a0b1c2d3e4f")
	return nil
}

func (m *MockTransactionService) CreateBulk(_ context.Context, _ string, transactions []*domain.Transaction) error {
	m.bulkCount = len(transactions)
	return m.err
}

func (m *MockTransactionService) Get(_ context.Context, _ string, id uuid.UUID) (*domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Transaction{ID: id}, nil
}

func (m *MockTransactionService) List(_ context.Context, _ string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.lastFilter = filter
	return []domain.Transaction{}, m.err
}

func (m *MockTransactionService) Update(_ context.Context, _ string, transaction *domain.Transaction) error {
	m.updatedID = transaction.ID
	return m.err
}

func (m *MockTransactionService) Delete(_ context.Context, _ string, _ uuid.UUID) error {
	return m.err
}

func (m *MockTransactionService) Summary(_ context.Context, _ string, startDate, endDate time.Time) (map[string]map[int]application.TransactionSummary, error) {
	m.lastFrom, m.lastTo = startDate, endDate
	if m.err != nil {
		return nil, m.err
	}
	return map[string]map[int]application.TransactionSummary{"USD": {2024: {Year: 2024}}}, nil
}

func (m *MockTransactionService) SummaryByCategory(_ context.Context, _ string, startDate, endDate time.Time, transactionType *domain.TransactionType) ([]domain.CategorySummary, error) {
	m.lastFrom, m.lastTo, m.lastType = startDate, endDate, transactionType
	return []domain.CategorySummary{}, m.err
}
