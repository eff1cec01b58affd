package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"piggyback/internal/models"
	"piggyback/internal/pagination"
)

// AssignmentFilter narrows ListByPeriod. A nil View matches both views.
type AssignmentFilter struct {
	PartnershipID string
	Period        string
	View          *models.BudgetView
}

// AssignmentRepo stores budget assignments.
type AssignmentRepo interface {
	FindByKey(ctx context.Context, key models.AssignmentKey) (*models.BudgetAssignment, error)
	FindByID(ctx context.Context, partnershipID, id string) (*models.BudgetAssignment, error)
	// Insert returns ErrDuplicateKey when a row with the same logical key
	// already exists.
	Insert(ctx context.Context, row *models.BudgetAssignment) error
	// UpdateAmountIfVersion sets the amount and bumps the version, but only
	// while the stored version still equals expectedVersion. applied is false
	// when another writer got there first or the row is gone.
	UpdateAmountIfVersion(ctx context.Context, id string, amount int64, expectedVersion int64, at time.Time) (applied bool, err error)
	Delete(ctx context.Context, partnershipID, id string) (bool, error)
	ListByPeriod(ctx context.Context, filter AssignmentFilter, page pagination.PageRequest) ([]models.BudgetAssignment, int64, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo creates a gorm-backed AssignmentRepo.
func NewAssignmentRepo(db *gorm.DB) AssignmentRepo {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) FindByKey(ctx context.Context, key models.AssignmentKey) (*models.BudgetAssignment, error) {
	var row models.BudgetAssignment
	err := r.db.WithContext(ctx).
		Where("partnership_id = ? AND period = ? AND assignment_type = ? AND budget_view = ? AND budget_scope = ? AND target_key = ?",
			key.PartnershipID, key.Period, key.Target.Type(), key.View, key.Scope(), key.Target.Key()).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *assignmentRepo) FindByID(ctx context.Context, partnershipID, id string) (*models.BudgetAssignment, error) {
	var row models.BudgetAssignment
	err := r.db.WithContext(ctx).
		Where("id = ? AND partnership_id = ?", id, partnershipID).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *assignmentRepo) Insert(ctx context.Context, row *models.BudgetAssignment) error {
	return translate(r.db.WithContext(ctx).Create(row).Error)
}

func (r *assignmentRepo) UpdateAmountIfVersion(ctx context.Context, id string, amount int64, expectedVersion int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BudgetAssignment{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"assigned_amount": amount,
			"version":         expectedVersion + 1,
			"updated_at":      at,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *assignmentRepo) Delete(ctx context.Context, partnershipID, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND partnership_id = ?", id, partnershipID).
		Delete(&models.BudgetAssignment{})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *assignmentRepo) ListByPeriod(ctx context.Context, filter AssignmentFilter, page pagination.PageRequest) ([]models.BudgetAssignment, int64, error) {
	page.Defaults()

	query := r.db.WithContext(ctx).
		Model(&models.BudgetAssignment{}).
		Where("partnership_id = ? AND period = ?", filter.PartnershipID, filter.Period)
	if filter.View != nil {
		query = query.Where("budget_view = ?", *filter.View)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var rows []models.BudgetAssignment
	err := query.
		Order("assignment_type ASC, target_key ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return rows, total, nil
}
