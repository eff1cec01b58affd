package models

import (
	"time"

	"piggyback/internal/uuid"

	"gorm.io/gorm"
)

// AssignmentType is the kind of target money is allocated to.
type AssignmentType string

const (
	AssignmentTypeCategory AssignmentType = "category"
	AssignmentTypeGoal     AssignmentType = "goal"
	AssignmentTypeAsset    AssignmentType = "asset"
)

// BudgetView separates personal-only allocations from joint ones.
type BudgetView string

const (
	BudgetViewIndividual BudgetView = "individual"
	BudgetViewShared     BudgetView = "shared"
)

// BudgetAssignment is a user-entered allocation for one target in one month.
//
// Exactly one of CategoryName, GoalID and AssetID is populated. The logical
// key (partnership, period, type, view, budget scope, target) is enforced by
// the uq_budget_assignments_key index over the derived BudgetScope and
// TargetKey columns. Version is the optimistic-concurrency token and is bumped
// on every update. Rows are hard-deleted so a deleted key can be reassigned.
type BudgetAssignment struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	PartnershipID   string         `gorm:"type:uuid;not null;uniqueIndex:uq_budget_assignments_key,priority:1" json:"partnership_id"`
	Period          string         `gorm:"size:7;not null;uniqueIndex:uq_budget_assignments_key,priority:2" json:"period"`
	AssignmentType  AssignmentType `gorm:"not null;uniqueIndex:uq_budget_assignments_key,priority:3" json:"assignment_type"`
	BudgetView      BudgetView     `gorm:"not null;uniqueIndex:uq_budget_assignments_key,priority:4" json:"budget_view"`
	BudgetScope     string         `gorm:"not null;default:'';uniqueIndex:uq_budget_assignments_key,priority:5" json:"-"`
	TargetKey       string         `gorm:"not null;uniqueIndex:uq_budget_assignments_key,priority:6" json:"-"`
	BudgetID        *string        `gorm:"type:uuid" json:"budget_id,omitempty"`
	CategoryName    *string        `json:"category_name,omitempty"`
	SubcategoryName *string        `json:"subcategory_name,omitempty"`
	GoalID          *string        `gorm:"type:uuid" json:"goal_id,omitempty"`
	AssetID         *string        `gorm:"type:uuid" json:"asset_id,omitempty"`
	AssignedAmount  int64          `gorm:"type:bigint;not null" json:"assigned_amount"`
	Version         int64          `gorm:"not null;default:1" json:"version"`
	CreatedBy       string         `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (a *BudgetAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	return nil
}

// Target decodes the row's target columns back into a Target.
func (a *BudgetAssignment) Target() (Target, error) {
	return TargetFromColumns(a.CategoryName, a.SubcategoryName, a.GoalID, a.AssetID)
}
