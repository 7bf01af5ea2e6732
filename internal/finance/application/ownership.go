package application

import (
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

// ownedRow is a category or currency: either a default row or one owned by a user.
type ownedRow interface {
	IsGlobal() bool
	VisibleTo(userID string) bool
}

// checkWritable decides whether userID may change row.
// Default rows are read-only and other users' rows do not exist for the caller.
func checkWritable(row ownedRow, userID string) error {
	if row.IsGlobal() {
		return financeErrors.ErrForbidden
	}
	if !row.VisibleTo(userID) {
		return financeErrors.ErrNotFound
	}
	return nil
}
