package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Threshold for float comparisons
const epsilon = 1e-9

// Status is the lifecycle state shared by trips, flights and legs.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// WarningLevel separates cosmetic data-quality noise from signals that
// money was miscounted.
type WarningLevel int

const (
	WarnDataQuality WarningLevel = iota
	WarnInvariant
)

func (l WarningLevel) String() string {
	if l == WarnInvariant {
		return "invariant"
	}
	return "data_quality"
}

// Warning is produced by the recompute functions instead of an error:
// processing always continues with a safe default, the caller decides
// how loudly to log it.
type Warning struct {
	Level   WarningLevel
	Field   string
	Message string
}

// ExpenseTiming records whether a flight expense happened before,
// during or after the flight itself.
type ExpenseTiming string

const (
	TimingBefore ExpenseTiming = "before"
	TimingDuring ExpenseTiming = "during"
	TimingAfter  ExpenseTiming = "after"
)

// FuelEntry is one fuel fill on a trip. Rate is the conversion rate
// snapshotted when the entry was created; zero means the converter's
// table value applies.
type FuelEntry struct {
	Country       string
	Liters        float64
	PricePerLiter float64
	Currency      Currency
	Rate          float64
	// derived
	AmountBase float64
}

// RoadExpense is a per-country road fee (tolls, permits, weigh bridges).
type RoadExpense struct {
	Country  string
	Amount   float64
	Currency Currency
	Rate     float64
	// derived
	AmountBase float64
}

// UnexpectedExpense is an ad-hoc trip cost outside the usual buckets.
type UnexpectedExpense struct {
	Name     string
	Amount   float64
	Currency Currency
	Rate     float64
	// derived
	AmountBase float64
}

// CountryFuel is the per-country bucket of the fuel summary.
type CountryFuel struct {
	Liters     float64
	AmountBase float64
}

// FuelSummary aggregates a trip's fuel entries. Consumption is liters
// per 100 km of distance traveled, rounded to 3 decimals.
type FuelSummary struct {
	ByCountry   map[string]CountryFuel
	TotalLiters float64
	TotalBase   float64
	Consumption float64
}

// Trip is a single point-to-point job. Fields below the derived marker
// are owned by RecomputeTrip and overwritten on every call.
type Trip struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	DriverID   uuid.UUID
	VehicleID  uuid.UUID
	Status     Status

	OdometerStart float64
	OdometerEnd   float64
	// Traveled is preserved as-is when a positive value was supplied
	// directly; it is only computed from the odometer otherwise.
	Traveled float64

	Fuel         []FuelEntry
	RoadExpenses []RoadExpense
	Unexpected   []UnexpectedExpense
	FoodTotal    float64
	DriverSalary float64
	Income       float64

	// derived
	FuelSummary     FuelSummary
	RoadTotal       float64
	UnexpectedTotal float64
	TotalExpenses   float64
	Profit          float64
}

// Leg is one point-to-point segment of a multi-leg flight, with its
// own client payment and advance.
type Leg struct {
	From        string
	To          string
	Distance    float64
	Payment     float64
	GivenBudget float64
	Status      Status
}

// FlightExpense is one entry of a flight's flat expense list. Class is
// the explicit, authoritative classification when present; Resolved is
// what the classifier decided on the last recompute.
type FlightExpense struct {
	Type     string
	Class    ExpenseClass
	Amount   float64
	Currency Currency
	Rate     float64
	Quantity float64
	Timing   ExpenseTiming
	Date     time.Time
	// derived
	AmountBase float64
	Resolved   ExpenseClass
}

// Flight is a multi-leg relay job. Fields below the derived marker are
// owned by RecomputeFlight and overwritten on every call.
type Flight struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	DriverID   uuid.UUID
	VehicleID  uuid.UUID
	Status     Status

	DriverProfitPercent float64
	Legs                []Leg
	Expenses            []FlightExpense

	// DriverPaidAmount is what the driver has already remitted against
	// DriverOwes for this flight.
	DriverPaidAmount float64

	// derived
	TotalPayment       float64
	TotalGivenBudget   float64
	TotalIncome        float64
	LightExpenses      float64
	HeavyExpenses      float64
	TotalExpenses      float64
	NetProfit          float64
	DriverProfitAmount float64
	BusinessProfit     float64
	DriverOwes         float64
}

// Payment is one row of the append-only driver payment log. The ledger
// only ever reads these.
type Payment struct {
	ID       uuid.UUID
	DriverID uuid.UUID
	Date     time.Time
	Amount   float64
	Type     string
	Note     string
}
