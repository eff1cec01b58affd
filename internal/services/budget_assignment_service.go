package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/logger"
	"piggyback/internal/models"
	"piggyback/internal/pagination"
	"piggyback/internal/repository"
	"piggyback/internal/validator"
)

// errLostRace is returned by updateIfVersion when the row changed (or
// vanished) between read and write.
var errLostRace = errors.New("assignment changed since it was read")

// assignmentService implements a compare-and-swap ledger over a store that
// offers insert-with-duplicate-detection and version-conditioned updates but
// no atomic upsert on the logical key.
type assignmentService struct {
	repo  repository.AssignmentRepo
	audit AuditServicer
	now   func() time.Time
}

// NewAssignmentService creates a new AssignmentServicer.
func NewAssignmentService(db *gorm.DB, audit AuditServicer) AssignmentServicer {
	return newAssignmentService(repository.NewAssignmentRepo(db), audit)
}

func newAssignmentService(repo repository.AssignmentRepo, audit AuditServicer) *assignmentService {
	return &assignmentService{
		repo:  repo,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type assignmentKeyInput struct {
	PartnershipID string            `validate:"required,uuid"`
	Period        string            `validate:"required,period_key"`
	View          models.BudgetView `validate:"required,budget_view"`
	BudgetID      *string           `validate:"omitempty,uuid"`
}

func validateKey(key models.AssignmentKey) error {
	if err := models.ValidateTarget(key.Target); err != nil {
		return apperrors.ErrInvalidTarget
	}
	if key.BudgetID != nil && *key.BudgetID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "BudgetID must not be empty when set")
	}
	return validator.Struct(assignmentKeyInput{
		PartnershipID: key.PartnershipID,
		Period:        key.Period,
		View:          key.View,
		BudgetID:      key.BudgetID,
	})
}

// Assign sets the allocation for key and returns the persisted row.
func (s *assignmentService) Assign(ctx context.Context, key models.AssignmentKey, amount int64, expectedVersion *int64, actor string) (*models.BudgetAssignment, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if actor == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "actor is required")
	}

	row, err := s.write(ctx, key, amount, expectedVersion, actor)
	if err != nil {
		return nil, err
	}

	s.audit.Log(key.PartnershipID, actor, AuditAssignBudget, "budget_assignment", row.ID, map[string]any{
		"period":          row.Period,
		"assignment_type": row.AssignmentType,
		"budget_view":     row.BudgetView,
		"assigned_amount": row.AssignedAmount,
		"version":         row.Version,
	})
	return row, nil
}

func (s *assignmentService) write(ctx context.Context, key models.AssignmentKey, amount int64, expectedVersion *int64, actor string) (*models.BudgetAssignment, error) {
	existing, err := s.repo.FindByKey(ctx, key)
	switch {
	case err == nil:
		if expectedVersion != nil {
			if existing.Version != *expectedVersion {
				return nil, apperrors.ErrConflict
			}
			updated, err := s.updateIfVersion(ctx, existing, amount)
			if errors.Is(err, errLostRace) {
				return nil, apperrors.ErrConflict
			}
			return updated, err
		}

		updated, err := s.updateIfVersion(ctx, existing, amount)
		if !errors.Is(err, errLostRace) {
			return updated, err
		}
		logger.Named("assignments").Debugw("update lost race, falling back to insert", "assignment_id", existing.ID)

	case errors.Is(err, repository.ErrNotFound):
		if expectedVersion != nil {
			// The row the caller read has been deleted.
			return nil, apperrors.ErrConflict
		}

	default:
		return nil, storeError(err, nil)
	}

	row := key.NewRow(amount, actor)
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	err = s.repo.Insert(ctx, row)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, storeError(err, nil)
	}

	// A concurrent writer created the key between our read and insert.
	// Re-read and retry as an update, once.
	existing, err = s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, storeError(fmt.Errorf("re-read after duplicate insert: %w", err), nil)
	}
	updated, err := s.updateIfVersion(ctx, existing, amount)
	if errors.Is(err, errLostRace) {
		logger.Named("assignments").Warnw("assignment retry lost race",
			"partnership_id", key.PartnershipID,
			"period", key.Period,
			"assignment_id", existing.ID,
		)
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	return updated, err
}

// updateIfVersion writes amount over row, conditioned on row.Version. It
// returns the row as persisted, or errLostRace.
func (s *assignmentService) updateIfVersion(ctx context.Context, row *models.BudgetAssignment, amount int64) (*models.BudgetAssignment, error) {
	at := s.now()
	applied, err := s.repo.UpdateAmountIfVersion(ctx, row.ID, amount, row.Version, at)
	if err != nil {
		return nil, storeError(err, nil)
	}
	if !applied {
		return nil, errLostRace
	}

	updated := *row
	updated.AssignedAmount = amount
	updated.Version = row.Version + 1
	updated.UpdatedAt = at
	return &updated, nil
}

// GetAssignment returns the row for key.
func (s *assignmentService) GetAssignment(ctx context.Context, key models.AssignmentKey) (*models.BudgetAssignment, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	row, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, storeError(err, apperrors.ErrAssignmentNotFound)
	}
	return row, nil
}

// ListAssignments returns a page of the partnership's rows for a period,
// optionally narrowed to one view.
func (s *assignmentService) ListAssignments(ctx context.Context, partnershipID, period string, view *models.BudgetView, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetAssignment], error) {
	if !validator.IsPeriodKey(period) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must look like 2026-01")
	}
	if err := validator.Struct(page); err != nil {
		return nil, err
	}
	page.Defaults()

	rows, total, err := s.repo.ListByPeriod(ctx, repository.AssignmentFilter{
		PartnershipID: partnershipID,
		Period:        period,
		View:          view,
	}, page)
	if err != nil {
		return nil, storeError(err, nil)
	}

	result := pagination.NewPageResponse(rows, page.Page, page.PageSize, total)
	return &result, nil
}

// DeleteAssignment hard-deletes a row. Owners may always delete.
func (s *assignmentService) DeleteAssignment(ctx context.Context, partnershipID, id, actor string) error {
	ok, err := s.repo.Delete(ctx, partnershipID, id)
	if err != nil {
		return storeError(err, nil)
	}
	if !ok {
		return apperrors.ErrAssignmentNotFound
	}

	s.audit.Log(partnershipID, actor, AuditDeleteAssignment, "budget_assignment", id, nil)
	return nil
}
