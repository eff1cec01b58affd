package services

import (
	"encoding/json"

	"piggyback/internal/logger"
	"piggyback/internal/models"

	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditCreateExpense     = "CREATE_EXPENSE"
	AuditDeactivateExpense = "DEACTIVATE_EXPENSE"
	AuditLinkTransaction   = "LINK_TRANSACTION"
	AuditUnlinkTransaction = "UNLINK_TRANSACTION"
	AuditAssignBudget      = "ASSIGN_BUDGET"
	AuditDeleteAssignment  = "DELETE_ASSIGNMENT"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(partnershipID, actor, action, resourceType, resourceID string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		PartnershipID: partnershipID,
		Actor:         actor,
		Action:        action,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Changes:       changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"partnership_id", partnershipID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
