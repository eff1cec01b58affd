package repository

import (
	"context"

	"gorm.io/gorm"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
)

// ExpenseRepo stores expense definitions.
type ExpenseRepo interface {
	Create(ctx context.Context, expense *models.ExpenseDefinition) error
	FindByID(ctx context.Context, partnershipID, id string) (*models.ExpenseDefinition, error)
	ListActive(ctx context.Context, partnershipID string) ([]models.ExpenseDefinition, error)
	Deactivate(ctx context.Context, partnershipID, id string) (bool, error)
	// AdvanceDueDate sets next_due_date to next only if the stored value is
	// earlier, so concurrent advances can never move a due date backwards.
	AdvanceDueDate(ctx context.Context, id string, next calendar.Date) (bool, error)
}

type expenseRepo struct {
	db *gorm.DB
}

// NewExpenseRepo creates a gorm-backed ExpenseRepo.
func NewExpenseRepo(db *gorm.DB) ExpenseRepo {
	return &expenseRepo{db: db}
}

func (r *expenseRepo) Create(ctx context.Context, expense *models.ExpenseDefinition) error {
	return translate(r.db.WithContext(ctx).Create(expense).Error)
}

func (r *expenseRepo) FindByID(ctx context.Context, partnershipID, id string) (*models.ExpenseDefinition, error) {
	var expense models.ExpenseDefinition
	err := r.db.WithContext(ctx).
		Where("id = ? AND partnership_id = ?", id, partnershipID).
		First(&expense).Error
	if err != nil {
		return nil, translate(err)
	}
	return &expense, nil
}

func (r *expenseRepo) ListActive(ctx context.Context, partnershipID string) ([]models.ExpenseDefinition, error) {
	var expenses []models.ExpenseDefinition
	err := r.db.WithContext(ctx).
		Where("partnership_id = ? AND is_active = ?", partnershipID, true).
		Order("next_due_date ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, translate(err)
	}
	return expenses, nil
}

func (r *expenseRepo) Deactivate(ctx context.Context, partnershipID, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExpenseDefinition{}).
		Where("id = ? AND partnership_id = ?", id, partnershipID).
		Update("is_active", false)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *expenseRepo) AdvanceDueDate(ctx context.Context, id string, next calendar.Date) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExpenseDefinition{}).
		Where("id = ? AND next_due_date < ?", id, next).
		Update("next_due_date", next)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}
