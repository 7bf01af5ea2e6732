package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeCategoryRepository struct {
	categories map[int]*domain.Category
	nextID     int
}

func newFakeCategoryRepository(categories ...domain.Category) *fakeCategoryRepository {
	repo := &fakeCategoryRepository{categories: map[int]*domain.Category{}, nextID: 100}
	for i := range categories {
		c := categories[i]
		repo.categories[c.ID] = &c
	}
	return repo
}

func (r *fakeCategoryRepository) ListVisible(_ context.Context, userID string) ([]domain.Category, error) {
	result := []domain.Category{}
	for _, c := range r.categories {
		if c.VisibleTo(userID) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeCategoryRepository) FindByID(_ context.Context, id int) (*domain.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCategoryRepository) FindGlobalByName(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range r.categories {
		if c.IsGlobal() && c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, financeErrors.ErrNotFound
}

func (r *fakeCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	for _, c := range r.categories {
		if c.Name == category.Name && c.UserID != nil && category.UserID != nil && *c.UserID == *category.UserID {
			return financeErrors.ErrConflict
		}
	}
	r.nextID++
	category.ID = r.nextID
	copied := *category
	r.categories[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepository) Rename(_ context.Context, id int, userID, name string) error {
	c, ok := r.categories[id]
	if !ok || c.UserID == nil || *c.UserID != userID {
		return financeErrors.ErrNotFound
	}
	c.Name = name
	return nil
}

func (r *fakeCategoryRepository) Delete(_ context.Context, id int, userID string) error {
	c, ok := r.categories[id]
	if !ok || c.UserID == nil || *c.UserID != userID {
		return financeErrors.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

type fakeCurrencyRepository struct {
	currencies map[int]*domain.Currency
	deleteErr  error
	nextID     int
}

func newFakeCurrencyRepository(currencies ...domain.Currency) *fakeCurrencyRepository {
	repo := &fakeCurrencyRepository{currencies: map[int]*domain.Currency{}, nextID: 100}
	for i := range currencies {
		c := currencies[i]
		repo.currencies[c.ID] = &c
	}
	return repo
}

func (r *fakeCurrencyRepository) ListVisible(_ context.Context, userID string) ([]domain.Currency, error) {
	result := []domain.Currency{}
	for _, c := range r.currencies {
		if c.VisibleTo(userID) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeCurrencyRepository) FindByID(_ context.Context, id int) (*domain.Currency, error) {
	c, ok := r.currencies[id]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCurrencyRepository) Create(_ context.Context, currency *domain.Currency) error {
	r.nextID++
	currency.ID = r.nextID
	copied := *currency
	r.currencies[currency.ID] = &copied
	return nil
}

func (r *fakeCurrencyRepository) Rename(_ context.Context, id int, _ string, name string) error {
	r.currencies[id].Name = name
	return nil
}

func (r *fakeCurrencyRepository) Delete(_ context.Context, id int, _ string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.currencies, id)
	return nil
}

type fakeAccountRepository struct {
	accounts    map[int]*domain.Account
	adjustments []decimal.Decimal
	corrections []domain.BalanceCorrection
	nextID      int
}

func newFakeAccountRepository(accounts ...domain.Account) *fakeAccountRepository {
	repo := &fakeAccountRepository{accounts: map[int]*domain.Account{}, nextID: 100}
	for i := range accounts {
		a := accounts[i]
		repo.accounts[a.ID] = &a
	}
	return repo
}

func (r *fakeAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.nextID++
	account.ID = r.nextID
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepository) FindByIDForUser(_ context.Context, id int, userID string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.UserID != userID {
		return nil, financeErrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepository) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	result := []domain.Account{}
	for _, a := range r.accounts {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *fakeAccountRepository) Update(_ context.Context, account *domain.Account) error {
	a, ok := r.accounts[account.ID]
	if !ok || a.UserID != account.UserID {
		return financeErrors.ErrNotFound
	}
	a.Name = account.Name
	a.Type = account.Type
	return nil
}

func (r *fakeAccountRepository) Delete(_ context.Context, id int, userID string) error {
	a, ok := r.accounts[id]
	if !ok || a.UserID != userID {
		return financeErrors.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepository) AdjustBalance(_ context.Context, id int, delta decimal.Decimal) error {
	a, ok := r.accounts[id]
	if !ok {
		return financeErrors.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	r.adjustments = append(r.adjustments, delta)
	return nil
}

func (r *fakeAccountRepository) ReconcileBalances(_ context.Context) ([]domain.BalanceCorrection, error) {
	return r.corrections, nil
}

func (r *fakeAccountRepository) balance(id int) decimal.Decimal {
	return r.accounts[id].Balance
}

type fakeTransactionRepository struct {
	transactions map[uuid.UUID]*domain.Transaction
	owners       map[int]string
	entries      []domain.SummaryEntry
	createErr    error
	created      int
}

// newFakeTransactionRepository resolves ownership through the account repository.
func newFakeTransactionRepository(accounts *fakeAccountRepository) *fakeTransactionRepository {
	owners := map[int]string{}
	for id, a := range accounts.accounts {
		owners[id] = a.UserID
	}
	return &fakeTransactionRepository{transactions: map[uuid.UUID]*domain.Transaction{}, owners: owners}
}

func (r *fakeTransactionRepository) Create(_ context.Context, transaction *domain.Transaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.transactions[transaction.ID]; exists {
		return financeErrors.ErrConflict
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
	copied := *transaction
	r.transactions[transaction.ID] = &copied
	r.created++
	return nil
}

func (r *fakeTransactionRepository) FindByIDForUser(_ context.Context, id uuid.UUID, userID string) (*domain.Transaction, error) {
	t, ok := r.transactions[id]
	if !ok || r.owners[t.AccountID] != userID {
		return nil, financeErrors.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTransactionRepository) LockByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Transaction, error) {
	return r.FindByIDForUser(ctx, id, userID)
}

func (r *fakeTransactionRepository) List(_ context.Context, userID string, _ domain.TransactionFilter) ([]domain.Transaction, error) {
	var result []domain.Transaction
	for _, t := range r.transactions {
		if r.owners[t.AccountID] == userID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *fakeTransactionRepository) Update(_ context.Context, transaction *domain.Transaction) error {
	if _, ok := r.transactions[transaction.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	copied := *transaction
	r.transactions[transaction.ID] = &copied
	return nil
}

func (r *fakeTransactionRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.transactions[id]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(r.transactions, id)
	return nil
}

func (r *fakeTransactionRepository) SummaryEntries(_ context.Context, _ string, _, _ time.Time) ([]domain.SummaryEntry, error) {
	return r.entries, nil
}

func (r *fakeTransactionRepository) SummaryByCategory(_ context.Context, _ string, _, _ time.Time, _ *domain.TransactionType) ([]domain.CategorySummary, error) {
	return nil, nil
}
