package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReconcile(t *testing.T) {
	driverID := uuid.New()

	flights := []Flight{
		{
			ID: uuid.New(), DriverID: driverID, Status: StatusCompleted,
			NetProfit: 3500000, DriverProfitAmount: 350000, BusinessProfit: 3150000, DriverOwes: 3150000,
		},
		{
			ID: uuid.New(), DriverID: driverID, Status: StatusCompleted,
			NetProfit: 1111112, DriverProfitAmount: 111112, BusinessProfit: 1000000, DriverOwes: 1000000,
			DriverPaidAmount: 2000000, // overpaid, clamps to 0 not -1000000
		},
		{
			ID: uuid.New(), DriverID: driverID, Status: StatusInProgress,
			DriverOwes: 999999, DriverProfitAmount: 77777, // must not count
		},
	}
	payments := []Payment{
		{ID: uuid.New(), DriverID: driverID, Date: time.Now(), Amount: 400000, Type: "driver_payment"},
	}

	summary := Reconcile(flights, nil, payments, 500000)

	// 3,150,000 from the unpaid flight + 0 from the overpaid one + 500,000 legacy
	if !floatEquals(summary.TotalDebt, 3650000) {
		t.Errorf("TotalDebt = %v, want 3650000", summary.TotalDebt)
	}
	if !floatEquals(summary.PaidAmount, 2000000) {
		t.Errorf("PaidAmount = %v, want 2000000", summary.PaidAmount)
	}
	if !floatEquals(summary.TotalEarnings, 461112) {
		t.Errorf("TotalEarnings = %v, want 461112", summary.TotalEarnings)
	}
	if !floatEquals(summary.PendingEarnings, 61112) {
		t.Errorf("PendingEarnings = %v, want 61112", summary.PendingEarnings)
	}
}

func TestReconcilePendingEarningsClamped(t *testing.T) {
	flights := []Flight{
		{Status: StatusCompleted, DriverProfitAmount: 100000, DriverOwes: 1},
	}
	payments := []Payment{
		{Amount: 250000}, // driver was paid more than accrued
	}
	summary := Reconcile(flights, nil, payments, 0)
	if summary.PendingEarnings != 0 {
		t.Errorf("PendingEarnings = %v, want 0 (clamped)", summary.PendingEarnings)
	}
}

func TestReconcileCountsCompletedTripsProfit(t *testing.T) {
	trips := []Trip{
		{Status: StatusCompleted, Profit: 120},
		{Status: StatusCancelled, Profit: 999},
		{Status: StatusCompleted, Profit: -20},
	}
	summary := Reconcile(nil, trips, nil, 0)
	if !floatEquals(summary.TripsProfit, 100) {
		t.Errorf("TripsProfit = %v, want 100", summary.TripsProfit)
	}
}

func TestDriverOwesAmountFallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		flight   Flight
		expected float64
	}{
		{
			name:     "stored driverOwes wins",
			flight:   Flight{DriverOwes: 500, BusinessProfit: 400, NetProfit: 1000, DriverProfitAmount: 100},
			expected: 500,
		},
		{
			name:     "falls back to businessProfit",
			flight:   Flight{BusinessProfit: 400, NetProfit: 1000, DriverProfitAmount: 100},
			expected: 400,
		},
		{
			name:     "recomputes from netProfit when both absent",
			flight:   Flight{NetProfit: 1000, DriverProfitAmount: 100},
			expected: 900,
		},
		{
			name:     "nothing to owe on an unprofitable legacy record",
			flight:   Flight{NetProfit: -300},
			expected: 0,
		},
		{
			name:     "negative stored driverOwes is preserved",
			flight:   Flight{DriverOwes: -250, NetProfit: -250},
			expected: -250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DriverOwesAmount(&tt.flight); !floatEquals(got, tt.expected) {
				t.Errorf("DriverOwesAmount = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildDebtReport(t *testing.T) {
	driverID := uuid.New()
	pendingFlight := Flight{ID: uuid.New(), DriverID: driverID, Status: StatusCompleted, DriverOwes: 3150000}
	paidFlight := Flight{ID: uuid.New(), DriverID: driverID, Status: StatusCompleted, DriverOwes: 1000000, DriverPaidAmount: 1000000}
	openFlight := Flight{ID: uuid.New(), DriverID: driverID, Status: StatusPending, DriverOwes: 55555}
	flights := []Flight{pendingFlight, paidFlight, openFlight}

	t.Run("unfiltered", func(t *testing.T) {
		report := BuildDebtReport(flights, 500000, FilterAll)
		if len(report.Rows) != 2 {
			t.Fatalf("got %d rows, want 2 (pending flights are excluded until completed)", len(report.Rows))
		}
		if report.PendingCount != 1 || report.PaidCount != 1 {
			t.Errorf("counts = pending %d / paid %d, want 1/1", report.PendingCount, report.PaidCount)
		}
		if !floatEquals(report.TotalDebt, 3650000) {
			t.Errorf("TotalDebt = %v, want 3650000", report.TotalDebt)
		}
		if !floatEquals(report.PreviousDebt, 500000) {
			t.Errorf("PreviousDebt = %v, want 500000", report.PreviousDebt)
		}
		if !floatEquals(report.PaidAmount, 1000000) {
			t.Errorf("PaidAmount = %v, want 1000000", report.PaidAmount)
		}
	})

	t.Run("pending filter", func(t *testing.T) {
		report := BuildDebtReport(flights, 0, FilterPending)
		if len(report.Rows) != 1 || report.Rows[0].FlightID != pendingFlight.ID {
			t.Fatalf("pending filter rows = %+v", report.Rows)
		}
		if !floatEquals(report.Rows[0].Remaining, 3150000) {
			t.Errorf("Remaining = %v, want 3150000", report.Rows[0].Remaining)
		}
	})

	t.Run("paid filter", func(t *testing.T) {
		report := BuildDebtReport(flights, 0, FilterPaid)
		if len(report.Rows) != 1 || report.Rows[0].FlightID != paidFlight.ID {
			t.Fatalf("paid filter rows = %+v", report.Rows)
		}
		// aggregates are filter-independent
		if !floatEquals(report.TotalDebt, 3150000) {
			t.Errorf("TotalDebt = %v, want 3150000", report.TotalDebt)
		}
	})
}
