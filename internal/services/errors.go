package services

import (
	"errors"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/repository"
)

// storeError maps a repository failure onto an AppError. notFound is used
// for ErrNotFound and data the store rejects is invalid input; anything else
// is a transient store failure.
func storeError(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, repository.ErrNotFound) && notFound != nil {
		return notFound
	}
	if errors.Is(err, repository.ErrInvalidData) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}
	return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
}
