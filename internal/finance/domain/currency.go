package domain

import (
	"context"
	"strings"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

// Currency is identified by its code, e.g. USD. A nil UserID marks a
// default currency.
type Currency struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	UserID *string `json:"user_id,omitempty"`
}

func (c *Currency) IsGlobal() bool {
	return c.UserID == nil
}

func (c *Currency) VisibleTo(userID string) bool {
	return c.UserID == nil || *c.UserID == userID
}

// NormalizeCurrencyCode upper-cases code and requires 2 to 10 letters or digits.
func NormalizeCurrencyCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 10 {
		return "", financeErrors.NewValidationError("Currency code must be between 2 and 10 characters")
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", financeErrors.NewValidationError("Currency code may contain only letters and digits")
		}
	}
	return code, nil
}

type CurrencyRepository interface {
	ListVisible(ctx context.Context, userID string) ([]Currency, error)
	FindByID(ctx context.Context, id int) (*Currency, error)
	Create(ctx context.Context, currency *Currency) error
	Rename(ctx context.Context, id int, userID, name string) error
	Delete(ctx context.Context, id int, userID string) error
}
