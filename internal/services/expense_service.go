package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/models"
	"piggyback/internal/repository"
	"piggyback/internal/validator"
)

// expenseService handles expense definition business logic.
type expenseService struct {
	expenses repository.ExpenseRepo
	audit    AuditServicer
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, audit AuditServicer) ExpenseServicer {
	return &expenseService{
		expenses: repository.NewExpenseRepo(db),
		audit:    audit,
	}
}

// CreateExpense defines a new active expected expense.
func (s *expenseService) CreateExpense(ctx context.Context, in CreateExpenseInput) (*models.ExpenseDefinition, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if in.NextDueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "NextDueDate is required")
	}

	expense := &models.ExpenseDefinition{
		PartnershipID:  in.PartnershipID,
		Name:           in.Name,
		CategoryName:   in.CategoryName,
		ExpectedAmount: in.ExpectedAmount,
		RecurrenceType: in.RecurrenceType,
		NextDueDate:    in.NextDueDate,
		IsActive:       true,
		MatchPattern:   in.MatchPattern,
		Notes:          in.Notes,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, storeError(err, nil)
	}

	s.audit.Log(in.PartnershipID, in.Actor, AuditCreateExpense, "expense_definition", expense.ID, map[string]any{
		"name":            expense.Name,
		"recurrence_type": expense.RecurrenceType,
		"next_due_date":   expense.NextDueDate.String(),
	})
	return expense, nil
}

// GetExpense returns one expense definition of the partnership.
func (s *expenseService) GetExpense(ctx context.Context, partnershipID, id string) (*models.ExpenseDefinition, error) {
	expense, err := s.expenses.FindByID(ctx, partnershipID, id)
	if err != nil {
		return nil, storeError(err, apperrors.ErrExpenseNotFound)
	}
	return expense, nil
}

// ListActiveExpenses returns active definitions ordered by due date.
func (s *expenseService) ListActiveExpenses(ctx context.Context, partnershipID string) ([]models.ExpenseDefinition, error) {
	expenses, err := s.expenses.ListActive(ctx, partnershipID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return expenses, nil
}

// DeactivateExpense soft-deactivates an expense. Its matches are kept.
func (s *expenseService) DeactivateExpense(ctx context.Context, partnershipID, id, actor string) error {
	ok, err := s.expenses.Deactivate(ctx, partnershipID, id)
	if err != nil {
		return storeError(err, nil)
	}
	if !ok {
		return apperrors.ErrExpenseNotFound
	}

	s.audit.Log(partnershipID, actor, AuditDeactivateExpense, "expense_definition", id, nil)
	return nil
}
