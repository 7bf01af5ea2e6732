package application

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

const (
	janeID = "u-jane"
	johnID = "u-john"
)

func strPtr(s string) *string {
	return &s
}

type testEnv struct {
	categories   *fakeCategoryRepository
	currencies   *fakeCurrencyRepository
	accounts     *fakeAccountRepository
	transactions *fakeTransactionRepository
	tx           *fakeTxManager

	categoryService    *CategoryService
	currencyService    *CurrencyService
	accountService     *AccountService
	transactionService *TransactionService
}

func newTestEnv() *testEnv {
	log, _ := test.NewNullLogger()

	categories := newFakeCategoryRepository(
		domain.Category{ID: 1, Name: "Food & Drink"},
		domain.Category{ID: 7, Name: "Salary"},
		domain.Category{ID: 8, Name: domain.InitialBalanceCategory},
		domain.Category{ID: 20, Name: "Pets", UserID: strPtr(janeID)},
		domain.Category{ID: 21, Name: "Fishing", UserID: strPtr(johnID)},
	)
	currencies := newFakeCurrencyRepository(
		domain.Currency{ID: 1, Name: "USD"},
		domain.Currency{ID: 4, Name: "PLN"},
		domain.Currency{ID: 30, Name: "BTC", UserID: strPtr(janeID)},
		domain.Currency{ID: 31, Name: "DOGE", UserID: strPtr(johnID)},
	)
	accounts := newFakeAccountRepository(
		domain.Account{ID: 1, Name: "Wallet", Balance: decimal.NewFromInt(100), CurrencyID: 1, UserID: janeID},
		domain.Account{ID: 2, Name: "Savings", CurrencyID: 4, UserID: janeID, Type: domain.AccountTypeSavings},
		domain.Account{ID: 3, Name: "John's", CurrencyID: 1, UserID: johnID},
	)
	transactions := newFakeTransactionRepository(accounts)
	tx := &fakeTxManager{}

	return &testEnv{
		categories:         categories,
		currencies:         currencies,
		accounts:           accounts,
		transactions:       transactions,
		tx:                 tx,
		categoryService:    NewCategoryService(categories, log),
		currencyService:    NewCurrencyService(currencies, log),
		accountService:     NewAccountService(accounts, currencies, categories, transactions, tx, log),
		transactionService: NewTransactionService(transactions, accounts, categories, tx, log),
	}
}
