package ledger

import "strings"

// ExpenseClass decides whether an expense reduces the profit pool
// shared with the driver (light) or is carried by the business alone
// (heavy).
type ExpenseClass string

const (
	ClassUnset ExpenseClass = ""
	ClassLight ExpenseClass = "light"
	ClassHeavy ExpenseClass = "heavy"
)

// heavyTypes are capital/incident categories excluded from the shared
// profit base.
var heavyTypes = map[string]struct{}{
	"repair_major": {},
	"tire":         {},
	"tires":        {},
	"accident":     {},
	"insurance":    {},
	"oil":          {},
}

// Classify resolves the class of an expense. An explicit class on the
// record is authoritative. Unknown categories fall open to light,
// because a silent heavy misclassification removes money from the
// driver's share.
func Classify(expenseType string, explicit ExpenseClass) ExpenseClass {
	if explicit == ClassLight || explicit == ClassHeavy {
		return explicit
	}
	t := strings.ToLower(strings.TrimSpace(expenseType))
	if strings.HasPrefix(t, "filter_") {
		return ClassHeavy
	}
	if _, ok := heavyTypes[t]; ok {
		return ClassHeavy
	}
	return ClassLight
}
