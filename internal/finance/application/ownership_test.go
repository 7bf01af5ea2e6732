package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

func TestCheckWritable(t *testing.T) {
	tests := []struct {
		name string
		row  ownedRow
		want error
	}{
		{"default category", &domain.Category{ID: 1, Name: "Food & Drink"}, financeErrors.ErrForbidden},
		{"own category", &domain.Category{ID: 20, Name: "Pets", UserID: strPtr(janeID)}, nil},
		{"foreign category", &domain.Category{ID: 21, Name: "Fishing", UserID: strPtr(johnID)}, financeErrors.ErrNotFound},
		{"default currency", &domain.Currency{ID: 1, Name: "USD"}, financeErrors.ErrForbidden},
		{"own currency", &domain.Currency{ID: 30, Name: "BTC", UserID: strPtr(janeID)}, nil},
		{"foreign currency", &domain.Currency{ID: 31, Name: "DOGE", UserID: strPtr(johnID)}, financeErrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkWritable(tt.row, janeID)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
