package ledger

import "fmt"

// RecomputeFlight rebuilds every derived flight field from its legs
// and expense list. Same pure-recompute contract as RecomputeTrip.
//
// The profit split uses client payments only: advances (given budget)
// are tracked in TotalIncome for business bookkeeping but never enter
// the driver-share base. Heavy expenses are likewise excluded from
// NetProfit; they are capital/incident costs carried by the business.
func RecomputeFlight(f *Flight, conv Converter) []Warning {
	var warnings []Warning

	f.TotalPayment = 0
	f.TotalGivenBudget = 0
	for _, leg := range f.Legs {
		f.TotalPayment = Round2(f.TotalPayment + leg.Payment)
		f.TotalGivenBudget = Round2(f.TotalGivenBudget + leg.GivenBudget)
	}
	f.TotalIncome = Round2(f.TotalPayment + f.TotalGivenBudget)

	f.LightExpenses = 0
	f.HeavyExpenses = 0
	for i := range f.Expenses {
		exp := &f.Expenses[i]
		if exp.Currency != USD && exp.Rate == 0 && !conv.Known(exp.Currency) {
			warnings = append(warnings, Warning{
				Level:   WarnDataQuality,
				Field:   "expenses.currency",
				Message: fmt.Sprintf("unknown currency %q on expense %d (%s), amount passed through unconverted", exp.Currency, i, exp.Type),
			})
		}
		exp.AmountBase = conv.ToBase(exp.Amount, exp.Currency, exp.Rate)
		exp.Resolved = Classify(exp.Type, exp.Class)
		if exp.Resolved == ClassHeavy {
			f.HeavyExpenses = Round2(f.HeavyExpenses + exp.AmountBase)
		} else {
			f.LightExpenses = Round2(f.LightExpenses + exp.AmountBase)
		}
	}
	f.TotalExpenses = Round2(f.LightExpenses + f.HeavyExpenses)

	f.NetProfit = Round2(f.TotalPayment - f.LightExpenses)
	if f.NetProfit > 0 {
		f.DriverProfitAmount = Round2(f.NetProfit * f.DriverProfitPercent / 100)
	} else {
		f.DriverProfitAmount = 0
	}
	f.BusinessProfit = Round2(f.NetProfit - f.DriverProfitAmount)

	// DriverOwes is the business share the driver must remit, because
	// client money was collected on the business's behalf. When
	// NetProfit is negative it goes negative too: that is the business
	// owing the driver, and clamping it here would erase a real
	// liability.
	f.DriverOwes = f.BusinessProfit

	if f.NetProfit > 0 && f.DriverOwes < 0 {
		warnings = append(warnings, Warning{
			Level:   WarnInvariant,
			Field:   "driverOwes",
			Message: fmt.Sprintf("driverOwes %.2f is negative while netProfit %.2f is positive", f.DriverOwes, f.NetProfit),
		})
	}

	return warnings
}
