package ledger

import (
	"math"

	"github.com/google/uuid"
)

// DebtSummary is the reconciled position of one driver against the
// business.
type DebtSummary struct {
	TotalDebt       float64
	PreviousDebt    float64
	PaidAmount      float64
	TotalEarnings   float64
	PendingEarnings float64
	// TripsProfit is the business-side profit of the driver's
	// completed trips; trips pay the driver through the salary
	// expense, so they never enter the earnings split.
	TripsProfit float64
}

// DriverOwesAmount resolves what a flight's driver owes, tolerating
// records produced by earlier rule versions: the stored DriverOwes
// wins, then BusinessProfit, then a recompute of
// NetProfit−DriverProfitAmount when the flight was profitable. This
// fallback chain is a migration shim; new records always carry
// DriverOwes.
func DriverOwesAmount(f *Flight) float64 {
	if math.Abs(f.DriverOwes) > epsilon {
		return f.DriverOwes
	}
	if math.Abs(f.BusinessProfit) > epsilon {
		return f.BusinessProfit
	}
	if f.NetProfit > 0 {
		return Round2(f.NetProfit - f.DriverProfitAmount)
	}
	return 0
}

// Reconcile nets a driver's completed flights and trips against the
// payment log and the carried-over legacy balance. Only completed
// records accrue debt or earnings; per-flight debt contributions are
// clamped at zero so an overpaid flight never offsets another one.
func Reconcile(flights []Flight, trips []Trip, payments []Payment, previousDebt float64) DebtSummary {
	summary := DebtSummary{PreviousDebt: previousDebt}

	for i := range flights {
		f := &flights[i]
		if f.Status != StatusCompleted {
			continue
		}
		owes := DriverOwesAmount(f)
		remaining := owes - f.DriverPaidAmount
		if remaining > 0 {
			summary.TotalDebt = Round2(summary.TotalDebt + remaining)
		}
		summary.PaidAmount = Round2(summary.PaidAmount + f.DriverPaidAmount)
		summary.TotalEarnings = Round2(summary.TotalEarnings + f.DriverProfitAmount)
	}

	for i := range trips {
		if trips[i].Status != StatusCompleted {
			continue
		}
		summary.TripsProfit = Round2(summary.TripsProfit + trips[i].Profit)
	}

	paid := 0.0
	for _, p := range payments {
		paid += p.Amount
	}
	summary.PendingEarnings = Round2(summary.TotalEarnings - paid)
	if summary.PendingEarnings < 0 {
		summary.PendingEarnings = 0
	}

	summary.TotalDebt = Round2(summary.TotalDebt + previousDebt)
	return summary
}

// DebtStatusFilter narrows the driver-debts report.
type DebtStatusFilter string

const (
	FilterAll     DebtStatusFilter = ""
	FilterPending DebtStatusFilter = "pending"
	FilterPaid    DebtStatusFilter = "paid"
)

// DebtRow is one completed flight in the driver-debts report.
type DebtRow struct {
	FlightID         uuid.UUID
	DriverID         uuid.UUID
	DriverOwes       float64
	DriverPaidAmount float64
	Remaining        float64
}

// DebtReport is the read-boundary view of outstanding driver debt.
type DebtReport struct {
	Rows         []DebtRow
	TotalDebt    float64
	PreviousDebt float64
	PaidAmount   float64
	PendingCount int
	PaidCount    int
}

// BuildDebtReport lists a driver's completed flights with their
// remaining balances, filtered by paid state. A flight counts as paid
// once DriverPaidAmount covers what it owes.
func BuildDebtReport(flights []Flight, previousDebt float64, filter DebtStatusFilter) DebtReport {
	report := DebtReport{PreviousDebt: previousDebt}

	for i := range flights {
		f := &flights[i]
		if f.Status != StatusCompleted {
			continue
		}
		owes := DriverOwesAmount(f)
		remaining := Round2(owes - f.DriverPaidAmount)
		fullyPaid := remaining <= epsilon

		if fullyPaid {
			report.PaidCount++
		} else {
			report.PendingCount++
			report.TotalDebt = Round2(report.TotalDebt + remaining)
		}
		report.PaidAmount = Round2(report.PaidAmount + f.DriverPaidAmount)

		switch filter {
		case FilterPending:
			if fullyPaid {
				continue
			}
		case FilterPaid:
			if !fullyPaid {
				continue
			}
		}
		report.Rows = append(report.Rows, DebtRow{
			FlightID:         f.ID,
			DriverID:         f.DriverID,
			DriverOwes:       owes,
			DriverPaidAmount: f.DriverPaidAmount,
			Remaining:        remaining,
		})
	}

	report.TotalDebt = Round2(report.TotalDebt + previousDebt)
	return report
}
