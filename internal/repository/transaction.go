package repository

import (
	"context"

	"gorm.io/gorm"

	"piggyback/internal/models"
)

// TransactionRepo stores ingested bank-feed transactions.
type TransactionRepo interface {
	// Create inserts a transaction, returning ErrDuplicateKey when the
	// partnership already has one with the same external id.
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, partnershipID, id string) (*models.Transaction, error)
	FindByExternalID(ctx context.Context, partnershipID, externalID string) (*models.Transaction, error)
}

type transactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepo creates a gorm-backed TransactionRepo.
func NewTransactionRepo(db *gorm.DB) TransactionRepo {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, txn *models.Transaction) error {
	return translate(r.db.WithContext(ctx).Create(txn).Error)
}

func (r *transactionRepo) FindByID(ctx context.Context, partnershipID, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND partnership_id = ?", id, partnershipID).
		First(&txn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (r *transactionRepo) FindByExternalID(ctx context.Context, partnershipID, externalID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("partnership_id = ? AND external_id = ?", partnershipID, externalID).
		First(&txn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}
