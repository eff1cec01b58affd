package services

import (
	"errors"
	"fmt"
	"testing"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/repository"
	"piggyback/internal/testutil"
)

func TestStoreError(t *testing.T) {
	t.Run("not_found_uses_sentinel", func(t *testing.T) {
		err := storeError(repository.ErrNotFound, apperrors.ErrExpenseNotFound)
		testutil.AssertAppError(t, err, apperrors.ErrExpenseNotFound.Code)
	})

	t.Run("not_found_without_sentinel_is_unavailable", func(t *testing.T) {
		err := storeError(repository.ErrNotFound, nil)
		testutil.AssertAppError(t, err, apperrors.ErrStoreUnavailable.Code)
	})

	t.Run("rejected_data_is_invalid_input", func(t *testing.T) {
		cause := errors.Join(repository.ErrInvalidData,
			errors.New(`invalid input syntax for type uuid: "txn-42" (SQLSTATE 22P02)`))
		err := storeError(fmt.Errorf("find transaction: %w", cause), apperrors.ErrTransactionNotFound)

		testutil.AssertAppError(t, err, apperrors.ErrInvalidInput.Code)
		if errors.Is(err, apperrors.ErrStoreUnavailable) {
			t.Error("rejected data must not be reported as retryable")
		}
	})

	t.Run("other_failures_are_unavailable", func(t *testing.T) {
		err := storeError(errors.New("connection reset by peer"), nil)
		testutil.AssertAppError(t, err, apperrors.ErrStoreUnavailable.Code)
	})
}
