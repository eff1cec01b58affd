package services

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"piggyback/internal/logger"
	"piggyback/internal/models"
	"piggyback/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("records_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAuditService(db)
		pid := testutil.NewPartnershipID()

		svc.Log(pid, "user-1", AuditAssignBudget, "budget_assignment", "a1", map[string]any{"assigned_amount": 5000})

		var entry models.AuditLog
		if err := db.Where("partnership_id = ?", pid).First(&entry).Error; err != nil {
			t.Fatalf("expected audit row: %v", err)
		}
		if entry.Changes != `{"assigned_amount":5000}` {
			t.Errorf("unexpected changes %s", entry.Changes)
		}
	})

	t.Run("store_failure_is_logged_not_returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAuditService(db)
		if err := db.Migrator().DropTable(&models.AuditLog{}); err != nil {
			t.Fatalf("drop table: %v", err)
		}

		core, logs := observer.New(zap.ErrorLevel)
		restore := logger.Replace(zap.New(core))
		defer restore()

		svc.Log(testutil.NewPartnershipID(), "user-1", AuditDeleteAssignment, "budget_assignment", "a1", nil)

		if logs.FilterMessage("failed to create audit log entry").Len() != 1 {
			t.Errorf("expected the failure to be logged, got %d entries", logs.Len())
		}
	})
}
