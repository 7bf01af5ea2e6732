package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

func TestCategoryService_ListShowsDefaultsAndOwn(t *testing.T) {
	env := newTestEnv()

	categories, err := env.categoryService.List(context.Background(), janeID)
	require.NoError(t, err)

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Food & Drink", "Salary", "Initial Balance", "Pets"}, names)
}

func TestCategoryService_Create(t *testing.T) {
	env := newTestEnv()

	category, err := env.categoryService.Create(context.Background(), janeID, "  Gifts ")
	require.NoError(t, err)
	assert.Equal(t, "Gifts", category.Name)
	require.NotNil(t, category.UserID)
	assert.Equal(t, janeID, *category.UserID)

	_, err = env.categoryService.Create(context.Background(), janeID, "Gifts")
	assert.ErrorIs(t, err, financeErrors.ErrConflict)

	_, err = env.categoryService.Create(context.Background(), janeID, "   ")
	assert.True(t, financeErrors.IsValidationError(err))
}

func TestCategoryService_RenameRules(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		wantErr error
	}{
		{"own category", 20, nil},
		{"default category", 1, financeErrors.ErrForbidden},
		{"someone else's category", 21, financeErrors.ErrNotFound},
		{"missing category", 999, financeErrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			category, err := env.categoryService.Rename(context.Background(), janeID, tt.id, "Renamed")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Renamed", category.Name)
			assert.Equal(t, "Renamed", env.categories.categories[tt.id].Name)
		})
	}
}

func TestCategoryService_DeleteDefaultForbidden(t *testing.T) {
	env := newTestEnv()

	err := env.categoryService.Delete(context.Background(), janeID, 1)
	assert.ErrorIs(t, err, financeErrors.ErrForbidden)

	require.NoError(t, env.categoryService.Delete(context.Background(), janeID, 20))
	_, ok := env.categories.categories[20]
	assert.False(t, ok)
}

func TestCurrencyService_CreateNormalizesCode(t *testing.T) {
	env := newTestEnv()

	currency, err := env.currencyService.Create(context.Background(), janeID, " chf ")
	require.NoError(t, err)
	assert.Equal(t, "CHF", currency.Name)

	for _, code := range []string{"X", "TOOLONGCODE1", "U$D"} {
		_, err := env.currencyService.Create(context.Background(), janeID, code)
		assert.True(t, financeErrors.IsValidationError(err), code)
	}
}

func TestCurrencyService_DeleteRules(t *testing.T) {
	env := newTestEnv()

	assert.ErrorIs(t, env.currencyService.Delete(context.Background(), janeID, 1), financeErrors.ErrForbidden)
	assert.ErrorIs(t, env.currencyService.Delete(context.Background(), janeID, 31), financeErrors.ErrNotFound)

	env.currencies.deleteErr = financeErrors.ErrConflict
	assert.ErrorIs(t, env.currencyService.Delete(context.Background(), janeID, 30), financeErrors.ErrConflict)
}

func TestCurrencyService_Rename(t *testing.T) {
	env := newTestEnv()

	currency, err := env.currencyService.Rename(context.Background(), janeID, 30, "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", currency.Name)

	_, err = env.currencyService.Rename(context.Background(), janeID, 4, "PLZ")
	assert.ErrorIs(t, err, financeErrors.ErrForbidden)
}
