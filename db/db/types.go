package db

import (
	"time"

	"github.com/google/uuid"

	"fleetledger/ledger"
)

// Driver is the account a driver's flights, trips and payments hang
// off. ProfitPercent is the driver's share of flight net profit.
// PreviousDebt is the legacy balance seeded once during migration;
// PreviousDebtSeeded guards the seed path against a second run.
type Driver struct {
	ID                 uuid.UUID
	BusinessID         uuid.UUID
	Name               string
	Phone              string
	ProfitPercent      float64
	PreviousDebt       float64
	PreviousDebtSeeded bool
}

// Vehicle is kept for referential integrity of trips and flights; the
// ledger never computes anything from it.
type Vehicle struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Plate      string
	Model      string
}

// RecordFilter narrows trip/flight listings. Zero values mean
// "no constraint".
type RecordFilter struct {
	// ID pins the listing to a single record.
	ID         uuid.UUID
	BusinessID uuid.UUID
	DriverID   uuid.UUID
	Status     ledger.Status
	From       time.Time
	To         time.Time
}
