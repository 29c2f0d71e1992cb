package ledger

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		expenseType string
		explicit    ExpenseClass
		expected    ExpenseClass
	}{
		{name: "tire is heavy", expenseType: "tire", expected: ClassHeavy},
		{name: "tires is heavy", expenseType: "tires", expected: ClassHeavy},
		{name: "major repair is heavy", expenseType: "repair_major", expected: ClassHeavy},
		{name: "accident is heavy", expenseType: "accident", expected: ClassHeavy},
		{name: "insurance is heavy", expenseType: "insurance", expected: ClassHeavy},
		{name: "oil is heavy", expenseType: "oil", expected: ClassHeavy},
		{name: "filter family is heavy", expenseType: "filter_oil", expected: ClassHeavy},
		{name: "filter air is heavy", expenseType: "filter_air", expected: ClassHeavy},
		{name: "fuel is light", expenseType: "fuel_diesel", expected: ClassLight},
		{name: "food is light", expenseType: "food", expected: ClassLight},
		{name: "toll is light", expenseType: "toll", expected: ClassLight},
		{name: "fine is light", expenseType: "fine", expected: ClassLight},
		{name: "parking is light", expenseType: "parking", expected: ClassLight},
		{name: "minor repair is light", expenseType: "repair_minor", expected: ClassLight},
		{name: "other is light", expenseType: "other", expected: ClassLight},
		{name: "unknown fails open to light", expenseType: "unknown_xyz", expected: ClassLight},
		{name: "empty type is light", expenseType: "", expected: ClassLight},
		{name: "case and whitespace are normalized", expenseType: "  TIRE ", expected: ClassHeavy},
		{name: "explicit light wins over heavy table", expenseType: "tire", explicit: ClassLight, expected: ClassLight},
		{name: "explicit heavy wins over light default", expenseType: "fuel_diesel", explicit: ClassHeavy, expected: ClassHeavy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.expenseType, tt.explicit); got != tt.expected {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.expenseType, tt.explicit, got, tt.expected)
			}
		})
	}
}
