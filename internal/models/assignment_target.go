package models

import (
	"errors"
	"strings"

	"piggyback/internal/uuid"
)

// ErrInvalidTarget is returned when an assignment names zero or several
// targets, a category with an empty name, or a goal or asset whose id is not
// a UUID.
var ErrInvalidTarget = errors.New("assignment must target exactly one of category, goal or asset")

// Target is what an allocation is assigned to: a CategoryTarget, GoalTarget
// or AssetTarget. The interface is sealed.
type Target interface {
	Type() AssignmentType
	// Key is a stable string identifying the target within its type.
	Key() string
	validate() error
	columns(a *BudgetAssignment)
}

// CategoryTarget allocates to a category, optionally narrowed to a subcategory.
type CategoryTarget struct {
	Name        string
	Subcategory string
}

// GoalTarget allocates to a savings goal.
type GoalTarget struct {
	ID string
}

// AssetTarget allocates to an asset.
type AssetTarget struct {
	ID string
}

func (CategoryTarget) Type() AssignmentType { return AssignmentTypeCategory }
func (GoalTarget) Type() AssignmentType     { return AssignmentTypeGoal }
func (AssetTarget) Type() AssignmentType    { return AssignmentTypeAsset }

func (c CategoryTarget) Key() string {
	if c.Subcategory == "" {
		return c.Name
	}
	return c.Name + "\x1f" + c.Subcategory
}

func (g GoalTarget) Key() string  { return g.ID }
func (a AssetTarget) Key() string { return a.ID }

func (c CategoryTarget) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidTarget
	}
	return nil
}

func (g GoalTarget) validate() error {
	if !uuid.IsValid(g.ID) {
		return ErrInvalidTarget
	}
	return nil
}

func (a AssetTarget) validate() error {
	if !uuid.IsValid(a.ID) {
		return ErrInvalidTarget
	}
	return nil
}

func (c CategoryTarget) columns(a *BudgetAssignment) {
	name := c.Name
	a.CategoryName = &name
	if c.Subcategory != "" {
		sub := c.Subcategory
		a.SubcategoryName = &sub
	}
}

func (g GoalTarget) columns(a *BudgetAssignment) {
	id := g.ID
	a.GoalID = &id
}

func (t AssetTarget) columns(a *BudgetAssignment) {
	id := t.ID
	a.AssetID = &id
}

// ValidateTarget checks that t is a non-nil target with a usable identifier.
func ValidateTarget(t Target) error {
	if t == nil {
		return ErrInvalidTarget
	}
	return t.validate()
}

// TargetFromColumns builds a Target from the three mutually exclusive
// nullable columns. Exactly one of category, goal and asset must be set.
func TargetFromColumns(category, subcategory, goalID, assetID *string) (Target, error) {
	set := 0
	var t Target
	if category != nil && *category != "" {
		set++
		c := CategoryTarget{Name: *category}
		if subcategory != nil {
			c.Subcategory = *subcategory
		}
		t = c
	}
	if goalID != nil && *goalID != "" {
		set++
		t = GoalTarget{ID: *goalID}
	}
	if assetID != nil && *assetID != "" {
		set++
		t = AssetTarget{ID: *assetID}
	}
	if set != 1 {
		return nil, ErrInvalidTarget
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignmentKey is the logical identity of a budget assignment.
type AssignmentKey struct {
	PartnershipID string
	Period        string
	View          BudgetView
	BudgetID      *string
	Target        Target
}

// Scope returns the budget scope column value; "" means the default budget.
func (k AssignmentKey) Scope() string {
	if k.BudgetID == nil {
		return ""
	}
	return *k.BudgetID
}

// NewRow returns an unsaved assignment row for the key.
func (k AssignmentKey) NewRow(amount int64, createdBy string) *BudgetAssignment {
	row := &BudgetAssignment{
		PartnershipID:  k.PartnershipID,
		Period:         k.Period,
		AssignmentType: k.Target.Type(),
		BudgetView:     k.View,
		BudgetScope:    k.Scope(),
		TargetKey:      k.Target.Key(),
		AssignedAmount: amount,
		Version:        1,
		CreatedBy:      createdBy,
	}
	if k.BudgetID != nil {
		id := *k.BudgetID
		row.BudgetID = &id
	}
	k.Target.columns(row)
	return row
}
