package pg

import (
	"time"

	"github.com/google/uuid"
)

type DriverModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Name               string    `gorm:"size:255;not null"`
	Phone              string    `gorm:"size:32"`
	ProfitPercent      float64   `gorm:"type:numeric(5,2);not null"`
	PreviousDebt       float64   `gorm:"type:numeric(14,2);not null;default:0"`
	PreviousDebtSeeded bool      `gorm:"not null;default:false"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DriverModel) TableName() string {
	return "drivers"
}

type VehicleModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	Plate      string    `gorm:"size:32;not null"`
	Model      string    `gorm:"size:255"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (VehicleModel) TableName() string {
	return "vehicles"
}

type TripModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	DriverID   uuid.UUID `gorm:"type:uuid;not null;index"`
	VehicleID  uuid.UUID `gorm:"type:uuid"`
	Status     string    `gorm:"size:32;not null"`

	OdometerStart float64 `gorm:"type:numeric(12,2)"`
	OdometerEnd   float64 `gorm:"type:numeric(12,2)"`
	Traveled      float64 `gorm:"type:numeric(12,2)"`

	FoodTotal    float64 `gorm:"type:numeric(14,2)"`
	DriverSalary float64 `gorm:"type:numeric(14,2)"`
	Income       float64 `gorm:"type:numeric(14,2)"`

	// derived, recomputed on every write
	FuelTotalLiters float64 `gorm:"type:numeric(14,3)"`
	FuelTotalBase   float64 `gorm:"type:numeric(14,2)"`
	Consumption     float64 `gorm:"type:numeric(8,3)"`
	RoadTotal       float64 `gorm:"type:numeric(14,2)"`
	UnexpectedTotal float64 `gorm:"type:numeric(14,2)"`
	TotalExpenses   float64 `gorm:"type:numeric(14,2)"`
	Profit          float64 `gorm:"type:numeric(14,2)"`

	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripModel) TableName() string {
	return "trips"
}

// TripFuelEntryModel stores one fuel fill. Rate is the conversion rate
// snapshotted at entry time so a later recompute reproduces the
// original base amount even after the table drifted.
type TripFuelEntryModel struct {
	TripID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position      int       `gorm:"primaryKey"`
	Country       string    `gorm:"size:64;not null"`
	Liters        float64   `gorm:"type:numeric(12,3)"`
	PricePerLiter float64   `gorm:"type:numeric(14,2)"`
	Currency      string    `gorm:"size:8;not null"`
	Rate          float64   `gorm:"type:numeric(14,4)"`
	AmountBase    float64   `gorm:"type:numeric(14,2)"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripFuelEntryModel) TableName() string {
	return "trip_fuel_entries"
}

type TripRoadExpenseModel struct {
	TripID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position   int       `gorm:"primaryKey"`
	Country    string    `gorm:"size:64;not null"`
	Amount     float64   `gorm:"type:numeric(14,2)"`
	Currency   string    `gorm:"size:8;not null"`
	Rate       float64   `gorm:"type:numeric(14,4)"`
	AmountBase float64   `gorm:"type:numeric(14,2)"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripRoadExpenseModel) TableName() string {
	return "trip_road_expenses"
}

type TripUnexpectedExpenseModel struct {
	TripID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position   int       `gorm:"primaryKey"`
	Name       string    `gorm:"size:255"`
	Amount     float64   `gorm:"type:numeric(14,2)"`
	Currency   string    `gorm:"size:8;not null"`
	Rate       float64   `gorm:"type:numeric(14,4)"`
	AmountBase float64   `gorm:"type:numeric(14,2)"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripUnexpectedExpenseModel) TableName() string {
	return "trip_unexpected_expenses"
}

type FlightModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	DriverID   uuid.UUID `gorm:"type:uuid;not null;index"`
	VehicleID  uuid.UUID `gorm:"type:uuid"`
	Status     string    `gorm:"size:32;not null"`

	DriverProfitPercent float64 `gorm:"type:numeric(5,2);not null"`
	DriverPaidAmount    float64 `gorm:"type:numeric(14,2);not null;default:0"`

	// derived, recomputed on every write
	TotalPayment       float64 `gorm:"type:numeric(14,2)"`
	TotalGivenBudget   float64 `gorm:"type:numeric(14,2)"`
	TotalIncome        float64 `gorm:"type:numeric(14,2)"`
	LightExpenses      float64 `gorm:"type:numeric(14,2)"`
	HeavyExpenses      float64 `gorm:"type:numeric(14,2)"`
	TotalExpenses      float64 `gorm:"type:numeric(14,2)"`
	NetProfit          float64 `gorm:"type:numeric(14,2)"`
	DriverProfitAmount float64 `gorm:"type:numeric(14,2)"`
	BusinessProfit     float64 `gorm:"type:numeric(14,2)"`
	DriverOwes         float64 `gorm:"type:numeric(14,2)"`

	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FlightModel) TableName() string {
	return "flights"
}

type FlightLegModel struct {
	FlightID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position     int       `gorm:"primaryKey"`
	FromLocation string    `gorm:"size:255"`
	ToLocation   string    `gorm:"size:255"`
	Distance     float64   `gorm:"type:numeric(12,2)"`
	Payment      float64   `gorm:"type:numeric(14,2)"`
	GivenBudget  float64   `gorm:"type:numeric(14,2)"`
	Status       string    `gorm:"size:32;not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FlightLegModel) TableName() string {
	return "flight_legs"
}

type FlightExpenseModel struct {
	FlightID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position int       `gorm:"primaryKey"`
	Type     string    `gorm:"size:64;not null"`
	Class    string    `gorm:"size:16"`
	Amount   float64   `gorm:"type:numeric(14,2)"`
	Currency string    `gorm:"size:8;not null"`
	Rate     float64   `gorm:"type:numeric(14,4)"`
	Quantity float64   `gorm:"type:numeric(12,3)"`
	Timing   string    `gorm:"size:16"`
	Date     time.Time
	// derived
	AmountBase float64 `gorm:"type:numeric(14,2)"`
	Resolved   string  `gorm:"size:16"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FlightExpenseModel) TableName() string {
	return "flight_expenses"
}

type PaymentModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	DriverID uuid.UUID `gorm:"type:uuid;not null;index"`
	Date     time.Time `gorm:"not null"`
	Amount   float64   `gorm:"type:numeric(14,2);not null"`
	Type     string    `gorm:"size:64;not null"`
	Note     string    `gorm:"type:text"`
	// meta data
	CreatedAt time.Time
}

func (PaymentModel) TableName() string {
	return "payments"
}
