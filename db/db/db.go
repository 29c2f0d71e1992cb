package db

import (
	"github.com/google/uuid"

	"fleetledger/ledger"
)

// FleetDBWrapper is the storage boundary of the ledger. Trips and
// flights are stored with their embedded sub-entries (exclusive
// ownership, no sharing); updates replace the whole record so the
// recomputed derived fields land together with the raw delta that
// caused them.
//
// The payment log is append-only: there are deliberately no update or
// delete methods for payments.
type FleetDBWrapper interface {
	// Drivers
	CreateDriver(d *Driver) error
	GetDriver(id uuid.UUID) (*Driver, error)
	ListDrivers(businessID uuid.UUID) ([]Driver, error)
	UpdateDriver(d *Driver) error
	// SeedPreviousDebt sets the carried-over legacy balance exactly
	// once per driver; a second call is an error.
	SeedPreviousDebt(id uuid.UUID, amount float64) error

	// Vehicles
	CreateVehicle(v *Vehicle) error
	GetVehicle(id uuid.UUID) (*Vehicle, error)

	// Trips
	CreateTrip(t *ledger.Trip) error
	GetTrip(id uuid.UUID) (*ledger.Trip, error)
	UpdateTrip(t *ledger.Trip) error
	ListTrips(filter RecordFilter) ([]ledger.Trip, error)

	// Flights
	CreateFlight(f *ledger.Flight) error
	GetFlight(id uuid.UUID) (*ledger.Flight, error)
	UpdateFlight(f *ledger.Flight) error
	ListFlights(filter RecordFilter) ([]ledger.Flight, error)

	// Payments (append-only log)
	AppendPayment(p *ledger.Payment) error
	// ListPayments returns the log for one driver, or the whole log
	// when driverID is uuid.Nil.
	ListPayments(driverID uuid.UUID) ([]ledger.Payment, error)
}
