package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/logger"
	"piggyback/internal/models"
	"piggyback/internal/repository"
	"piggyback/internal/validator"
)

// transactionService handles bank-feed ingestion.
type transactionService struct {
	transactions repository.TransactionRepo
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{transactions: repository.NewTransactionRepo(db)}
}

// RecordTransaction stores a bank-feed event. Delivering the same external
// id twice returns the row stored the first time.
func (s *transactionService) RecordTransaction(ctx context.Context, in RecordTransactionInput) (*models.Transaction, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	// Default created_at to now if not provided
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	txn := &models.Transaction{
		PartnershipID: in.PartnershipID,
		ExternalID:    in.ExternalID,
		Amount:        in.Amount,
		Description:   in.Description,
		SettledAt:     in.SettledAt,
		CreatedAt:     createdAt,
	}

	err := s.transactions.Create(ctx, txn)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, storeError(err, nil)
	}

	existing, err := s.transactions.FindByExternalID(ctx, in.PartnershipID, in.ExternalID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	logger.Get().Debugw("transaction redelivered",
		"partnership_id", in.PartnershipID,
		"external_id", in.ExternalID,
		"transaction_id", existing.ID,
	)
	return existing, nil
}

// GetTransaction returns one transaction of the partnership.
func (s *transactionService) GetTransaction(ctx context.Context, partnershipID, id string) (*models.Transaction, error) {
	txn, err := s.transactions.FindByID(ctx, partnershipID, id)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound)
	}
	return txn, nil
}
