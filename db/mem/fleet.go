package mem

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "fleetledger/db/db"
	"fleetledger/ledger"
)

// inMemoryFleetDBWrapper is an in-memory implementation of
// dbt.FleetDBWrapper, used by tests and the batch recompute job's test
// harness. All accessors copy on the way in and out so callers never
// share slices with the store.
type inMemoryFleetDBWrapper struct {
	drivers  map[uuid.UUID]*dbt.Driver
	vehicles map[uuid.UUID]*dbt.Vehicle
	trips    map[uuid.UUID]*ledger.Trip
	flights  map[uuid.UUID]*ledger.Flight
	payments []ledger.Payment

	created map[uuid.UUID]time.Time

	mu sync.RWMutex
}

// NewInMemoryFleetDBWrapper creates and returns a new instance of
// inMemoryFleetDBWrapper.
func NewInMemoryFleetDBWrapper() dbt.FleetDBWrapper {
	return &inMemoryFleetDBWrapper{
		drivers:  make(map[uuid.UUID]*dbt.Driver),
		vehicles: make(map[uuid.UUID]*dbt.Vehicle),
		trips:    make(map[uuid.UUID]*ledger.Trip),
		flights:  make(map[uuid.UUID]*ledger.Flight),
		created:  make(map[uuid.UUID]time.Time),
	}
}

// --- drivers ---

func (db *inMemoryFleetDBWrapper) CreateDriver(d *dbt.Driver) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.drivers[d.ID]; exists {
		return fmt.Errorf("driver with ID %s already exists", d.ID)
	}
	driverCopy := *d
	db.drivers[d.ID] = &driverCopy
	return nil
}

func (db *inMemoryFleetDBWrapper) GetDriver(id uuid.UUID) (*dbt.Driver, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	driver, exists := db.drivers[id]
	if !exists {
		return nil, fmt.Errorf("driver with ID %s not found", id)
	}
	driverCopy := *driver
	return &driverCopy, nil
}

func (db *inMemoryFleetDBWrapper) ListDrivers(businessID uuid.UUID) ([]dbt.Driver, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var drivers []dbt.Driver
	for _, d := range db.drivers {
		if businessID != uuid.Nil && d.BusinessID != businessID {
			continue
		}
		drivers = append(drivers, *d)
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Name < drivers[j].Name })
	return drivers, nil
}

func (db *inMemoryFleetDBWrapper) UpdateDriver(d *dbt.Driver) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.drivers[d.ID]
	if !exists {
		return fmt.Errorf("driver with ID %s not found", d.ID)
	}
	stored.Name = d.Name
	stored.Phone = d.Phone
	stored.ProfitPercent = d.ProfitPercent
	return nil
}

func (db *inMemoryFleetDBWrapper) SeedPreviousDebt(id uuid.UUID, amount float64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	driver, exists := db.drivers[id]
	if !exists {
		return fmt.Errorf("driver with ID %s not found", id)
	}
	if driver.PreviousDebtSeeded {
		return fmt.Errorf("previous debt for driver %s already seeded", id)
	}
	driver.PreviousDebt = amount
	driver.PreviousDebtSeeded = true
	return nil
}

// --- vehicles ---

func (db *inMemoryFleetDBWrapper) CreateVehicle(v *dbt.Vehicle) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.vehicles[v.ID]; exists {
		return fmt.Errorf("vehicle with ID %s already exists", v.ID)
	}
	vehicleCopy := *v
	db.vehicles[v.ID] = &vehicleCopy
	return nil
}

func (db *inMemoryFleetDBWrapper) GetVehicle(id uuid.UUID) (*dbt.Vehicle, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	vehicle, exists := db.vehicles[id]
	if !exists {
		return nil, fmt.Errorf("vehicle with ID %s not found", id)
	}
	vehicleCopy := *vehicle
	return &vehicleCopy, nil
}

// --- trips ---

func (db *inMemoryFleetDBWrapper) CreateTrip(t *ledger.Trip) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.trips[t.ID]; exists {
		return fmt.Errorf("trip with ID %s already exists", t.ID)
	}
	db.trips[t.ID] = copyTrip(t)
	db.created[t.ID] = time.Now()
	return nil
}

func (db *inMemoryFleetDBWrapper) GetTrip(id uuid.UUID) (*ledger.Trip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	trip, exists := db.trips[id]
	if !exists {
		return nil, fmt.Errorf("trip with ID %s not found", id)
	}
	return copyTrip(trip), nil
}

func (db *inMemoryFleetDBWrapper) UpdateTrip(t *ledger.Trip) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.trips[t.ID]; !exists {
		return fmt.Errorf("trip with ID %s not found", t.ID)
	}
	db.trips[t.ID] = copyTrip(t)
	return nil
}

func (db *inMemoryFleetDBWrapper) ListTrips(filter dbt.RecordFilter) ([]ledger.Trip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var trips []ledger.Trip
	for _, t := range db.trips {
		if !db.matches(filter, t.BusinessID, t.DriverID, t.Status, t.ID) {
			continue
		}
		trips = append(trips, *copyTrip(t))
	}
	db.sortByCreation(len(trips), func(i int) uuid.UUID { return trips[i].ID }, func(i, j int) { trips[i], trips[j] = trips[j], trips[i] })
	return trips, nil
}

// --- flights ---

func (db *inMemoryFleetDBWrapper) CreateFlight(f *ledger.Flight) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.flights[f.ID]; exists {
		return fmt.Errorf("flight with ID %s already exists", f.ID)
	}
	db.flights[f.ID] = copyFlight(f)
	db.created[f.ID] = time.Now()
	return nil
}

func (db *inMemoryFleetDBWrapper) GetFlight(id uuid.UUID) (*ledger.Flight, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	flight, exists := db.flights[id]
	if !exists {
		return nil, fmt.Errorf("flight with ID %s not found", id)
	}
	return copyFlight(flight), nil
}

func (db *inMemoryFleetDBWrapper) UpdateFlight(f *ledger.Flight) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.flights[f.ID]; !exists {
		return fmt.Errorf("flight with ID %s not found", f.ID)
	}
	db.flights[f.ID] = copyFlight(f)
	return nil
}

func (db *inMemoryFleetDBWrapper) ListFlights(filter dbt.RecordFilter) ([]ledger.Flight, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var flights []ledger.Flight
	for _, f := range db.flights {
		if !db.matches(filter, f.BusinessID, f.DriverID, f.Status, f.ID) {
			continue
		}
		flights = append(flights, *copyFlight(f))
	}
	db.sortByCreation(len(flights), func(i int) uuid.UUID { return flights[i].ID }, func(i, j int) { flights[i], flights[j] = flights[j], flights[i] })
	return flights, nil
}

// --- payments ---

func (db *inMemoryFleetDBWrapper) AppendPayment(p *ledger.Payment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.drivers[p.DriverID]; !exists {
		return fmt.Errorf("driver %s not found for payment", p.DriverID)
	}
	db.payments = append(db.payments, *p)
	return nil
}

func (db *inMemoryFleetDBWrapper) ListPayments(driverID uuid.UUID) ([]ledger.Payment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var payments []ledger.Payment
	for _, p := range db.payments {
		if driverID != uuid.Nil && p.DriverID != driverID {
			continue
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// --- helpers ---

func (db *inMemoryFleetDBWrapper) matches(filter dbt.RecordFilter, businessID, driverID uuid.UUID, status ledger.Status, id uuid.UUID) bool {
	if filter.ID != uuid.Nil && id != filter.ID {
		return false
	}
	if filter.BusinessID != uuid.Nil && businessID != filter.BusinessID {
		return false
	}
	if filter.DriverID != uuid.Nil && driverID != filter.DriverID {
		return false
	}
	if filter.Status != "" && status != filter.Status {
		return false
	}
	createdAt := db.created[id]
	if !filter.From.IsZero() && createdAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !createdAt.Before(filter.To) {
		return false
	}
	return true
}

// sortByCreation bubbles records into insertion order; n is small in
// tests so the simple quadratic pass is fine.
func (db *inMemoryFleetDBWrapper) sortByCreation(n int, id func(int) uuid.UUID, swap func(i, j int)) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if db.created[id(j)].Before(db.created[id(i)]) {
				swap(i, j)
			}
		}
	}
}

func copyTrip(t *ledger.Trip) *ledger.Trip {
	tripCopy := *t
	tripCopy.Fuel = append([]ledger.FuelEntry(nil), t.Fuel...)
	tripCopy.RoadExpenses = append([]ledger.RoadExpense(nil), t.RoadExpenses...)
	tripCopy.Unexpected = append([]ledger.UnexpectedExpense(nil), t.Unexpected...)
	if t.FuelSummary.ByCountry != nil {
		tripCopy.FuelSummary.ByCountry = make(map[string]ledger.CountryFuel, len(t.FuelSummary.ByCountry))
		for country, bucket := range t.FuelSummary.ByCountry {
			tripCopy.FuelSummary.ByCountry[country] = bucket
		}
	}
	return &tripCopy
}

func copyFlight(f *ledger.Flight) *ledger.Flight {
	flightCopy := *f
	flightCopy.Legs = append([]ledger.Leg(nil), f.Legs...)
	flightCopy.Expenses = append([]ledger.FlightExpense(nil), f.Expenses...)
	return &flightCopy
}
