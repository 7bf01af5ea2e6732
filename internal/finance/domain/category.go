package domain

import (
	"context"
	"strings"
	"unicode/utf8"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

const (
	maxCategoryNameLength = 100

	// InitialBalanceCategory is the default category used when an account
	// is opened with a non-zero balance.
	InitialBalanceCategory = "Initial Balance"
)

// Category classifies transactions. A nil UserID marks a default category
// shared by every user.
type Category struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	UserID *string `json:"user_id,omitempty"`
}

func (c *Category) IsGlobal() bool {
	return c.UserID == nil
}

// VisibleTo reports whether userID may reference the category.
func (c *Category) VisibleTo(userID string) bool {
	return c.UserID == nil || *c.UserID == userID
}

func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCategoryNameLength {
		return "", financeErrors.NewValidationError("Category name must be between 1 and 100 characters")
	}
	return name, nil
}

type CategoryRepository interface {
	ListVisible(ctx context.Context, userID string) ([]Category, error)
	FindByID(ctx context.Context, id int) (*Category, error)
	FindGlobalByName(ctx context.Context, name string) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Rename(ctx context.Context, id int, userID, name string) error
	Delete(ctx context.Context, id int, userID string) error
}
