package models

import (
	"errors"
	"testing"
)

const (
	testGoalID  = "0190f3c4-5e2a-7b8c-9d0e-1f2a3b4c5d6e"
	testAssetID = "0190f3c4-5e2a-7b8c-9d0e-1f2a3b4c5d6f"
)

func strPtr(s string) *string { return &s }

func TestTargetFromColumns(t *testing.T) {
	t.Run("category", func(t *testing.T) {
		target, err := TargetFromColumns(strPtr("Groceries"), strPtr("Fruit"), nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, ok := target.(CategoryTarget)
		if !ok {
			t.Fatalf("expected CategoryTarget, got %T", target)
		}
		if c.Name != "Groceries" || c.Subcategory != "Fruit" {
			t.Errorf("unexpected target %+v", c)
		}
	})

	t.Run("goal", func(t *testing.T) {
		target, err := TargetFromColumns(nil, nil, strPtr(testGoalID), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target.Type() != AssignmentTypeGoal {
			t.Errorf("expected goal, got %s", target.Type())
		}
	})

	t.Run("malformed_goal_id", func(t *testing.T) {
		_, err := TargetFromColumns(nil, nil, strPtr("goal-1"), nil)
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("expected ErrInvalidTarget, got %v", err)
		}
	})

	t.Run("none_set", func(t *testing.T) {
		_, err := TargetFromColumns(nil, nil, nil, nil)
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("expected ErrInvalidTarget, got %v", err)
		}
	})

	t.Run("two_set", func(t *testing.T) {
		_, err := TargetFromColumns(strPtr("Rent"), nil, nil, strPtr(testAssetID))
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("expected ErrInvalidTarget, got %v", err)
		}
	})

	t.Run("empty_strings_do_not_count", func(t *testing.T) {
		target, err := TargetFromColumns(strPtr(""), nil, nil, strPtr(testAssetID))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target.Type() != AssignmentTypeAsset {
			t.Errorf("expected asset, got %s", target.Type())
		}
	})
}

func TestValidateTarget(t *testing.T) {
	if err := ValidateTarget(nil); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("nil target: expected ErrInvalidTarget, got %v", err)
	}
	if err := ValidateTarget(CategoryTarget{Name: "  "}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("blank category: expected ErrInvalidTarget, got %v", err)
	}
	if err := ValidateTarget(GoalTarget{ID: testGoalID}); err != nil {
		t.Errorf("goal: unexpected error %v", err)
	}
	if err := ValidateTarget(AssetTarget{ID: testAssetID}); err != nil {
		t.Errorf("asset: unexpected error %v", err)
	}
	for _, target := range []Target{GoalTarget{ID: "goal-1"}, AssetTarget{ID: "txn-42"}, GoalTarget{ID: ""}} {
		if err := ValidateTarget(target); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("%+v: expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestAssignmentKeyNewRow(t *testing.T) {
	budgetID := "budget-1"
	key := AssignmentKey{
		PartnershipID: "p-1",
		Period:        "2026-01",
		View:          BudgetViewShared,
		BudgetID:      &budgetID,
		Target:        CategoryTarget{Name: "Groceries", Subcategory: "Fruit"},
	}

	row := key.NewRow(5000, "user-1")

	if row.AssignmentType != AssignmentTypeCategory {
		t.Errorf("expected category type, got %s", row.AssignmentType)
	}
	if row.BudgetScope != "budget-1" {
		t.Errorf("expected budget scope budget-1, got %q", row.BudgetScope)
	}
	if row.CategoryName == nil || *row.CategoryName != "Groceries" {
		t.Errorf("expected category name Groceries, got %v", row.CategoryName)
	}
	if row.GoalID != nil || row.AssetID != nil {
		t.Error("only the category column should be populated")
	}
	if row.Version != 1 {
		t.Errorf("expected version 1, got %d", row.Version)
	}

	roundTrip, err := row.Target()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roundTrip.Key() != key.Target.Key() {
		t.Errorf("target key changed: %q vs %q", roundTrip.Key(), key.Target.Key())
	}
}

func TestCategoryKeysDistinguishSubcategory(t *testing.T) {
	a := CategoryTarget{Name: "Food"}
	b := CategoryTarget{Name: "Food", Subcategory: "Takeaway"}
	if a.Key() == b.Key() {
		t.Error("category and category+subcategory must not share a key")
	}
}
