package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
)

// MatchRepo stores expense matches.
type MatchRepo interface {
	// InsertIfUnlinked inserts the match unless its transaction is already
	// linked to any expense. created is false when the insert was skipped.
	InsertIfUnlinked(ctx context.Context, match *models.ExpenseMatch) (created bool, err error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.ExpenseMatch, error)
	// CountForPeriod counts matches of an expense stamped with forPeriod,
	// ignoring the given transaction.
	CountForPeriod(ctx context.Context, expenseID string, forPeriod calendar.Date, excludeTransactionID string) (int64, error)
	// ListInWindow returns the partnership's matches whose bucket falls in
	// [from, to], with their transactions loaded. Legacy rows without a
	// for_period are bucketed by their transaction's effective date.
	ListInWindow(ctx context.Context, partnershipID string, from, to calendar.Date) ([]models.ExpenseMatch, error)
	DeleteByTransactionID(ctx context.Context, partnershipID, transactionID string) (bool, error)
}

type matchRepo struct {
	db *gorm.DB
}

// NewMatchRepo creates a gorm-backed MatchRepo.
func NewMatchRepo(db *gorm.DB) MatchRepo {
	return &matchRepo{db: db}
}

func (r *matchRepo) InsertIfUnlinked(ctx context.Context, match *models.ExpenseMatch) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(match)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *matchRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.ExpenseMatch, error) {
	var match models.ExpenseMatch
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&match).Error
	if err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepo) CountForPeriod(ctx context.Context, expenseID string, forPeriod calendar.Date, excludeTransactionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ExpenseMatch{}).
		Where("expense_definition_id = ? AND for_period = ? AND transaction_id <> ?", expenseID, forPeriod, excludeTransactionID).
		Count(&count).Error
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *matchRepo) ListInWindow(ctx context.Context, partnershipID string, from, to calendar.Date) ([]models.ExpenseMatch, error) {
	expenseIDs := r.db.Model(&models.ExpenseDefinition{}).
		Select("id").
		Where("partnership_id = ?", partnershipID)

	var candidates []models.ExpenseMatch
	err := r.db.WithContext(ctx).
		Preload("Transaction").
		Where("expense_definition_id IN (?)", expenseIDs).
		Where("((for_period >= ? AND for_period <= ?) OR for_period IS NULL)", from, to).
		Order("matched_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, translate(err)
	}

	matches := candidates[:0]
	for _, m := range candidates {
		if m.ForPeriod != nil && !m.ForPeriod.IsZero() {
			matches = append(matches, m)
			continue
		}
		if d, ok := m.PeriodDate(); ok && d.Between(from, to) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (r *matchRepo) DeleteByTransactionID(ctx context.Context, partnershipID, transactionID string) (bool, error) {
	expenseIDs := r.db.Model(&models.ExpenseDefinition{}).
		Select("id").
		Where("partnership_id = ?", partnershipID)

	result := r.db.WithContext(ctx).
		Where("transaction_id = ? AND expense_definition_id IN (?)", transactionID, expenseIDs).
		Delete(&models.ExpenseMatch{})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}
