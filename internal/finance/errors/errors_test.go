package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	ve.Add(NewIndexedValidationError(1, "Amount must be greater than zero"))
	ve.Add(NewIndexedValidationError(3, ErrInvalidCategory.Error()))

	wrapped := fmt.Errorf("bulk insert: %w", ve)
	assert.True(t, IsValidationErrors(wrapped))
	assert.False(t, IsValidationError(wrapped))
	assert.Equal(t, []string{
		"Validation error at transaction 1: Amount must be greater than zero",
		"Validation error at transaction 3: Invalid category",
	}, ve.Messages())
	assert.Contains(t, ve.Error(), "multiple validation errors")
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(fmt.Errorf("create: %w", ErrInvalidAccount)))
	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(errors.New("plain")))
}
