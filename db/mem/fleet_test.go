package mem

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "fleetledger/db/db"
	"fleetledger/ledger"
)

func newDBWithDriver(t *testing.T) (dbt.FleetDBWrapper, dbt.Driver) {
	t.Helper()
	db := NewInMemoryFleetDBWrapper()
	driver := dbt.Driver{ID: uuid.New(), BusinessID: uuid.New(), Name: "Bek", ProfitPercent: 10}
	require.NoError(t, db.CreateDriver(&driver))
	return db, driver
}

func TestDriverLifecycle(t *testing.T) {
	db, driver := newDBWithDriver(t)

	// duplicate create rejected
	assert.Error(t, db.CreateDriver(&dbt.Driver{ID: driver.ID}))

	got, err := db.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bek", got.Name)

	got.Name = "Bekzod"
	require.NoError(t, db.UpdateDriver(got))
	updated, err := db.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bekzod", updated.Name)

	_, err = db.GetDriver(uuid.New())
	assert.Error(t, err)
}

func TestSeedPreviousDebtGuard(t *testing.T) {
	db, driver := newDBWithDriver(t)

	require.NoError(t, db.SeedPreviousDebt(driver.ID, 500000))
	got, err := db.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 500000.0, got.PreviousDebt)

	assert.Error(t, db.SeedPreviousDebt(driver.ID, 1), "second seed must be rejected")
	assert.Error(t, db.SeedPreviousDebt(uuid.New(), 1), "unknown driver must be rejected")
}

func TestTripStorageIsolation(t *testing.T) {
	db, driver := newDBWithDriver(t)

	trip := ledger.Trip{
		ID:       uuid.New(),
		DriverID: driver.ID,
		Status:   ledger.StatusPending,
		Fuel:     []ledger.FuelEntry{{Country: "UZ", Liters: 100}},
	}
	require.NoError(t, db.CreateTrip(&trip))

	// mutating the caller's copy must not leak into the store
	trip.Fuel[0].Liters = 999
	got, err := db.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Fuel[0].Liters)

	// mutating a read copy must not leak either
	got.Fuel[0].Liters = 555
	again, err := db.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Fuel[0].Liters)
}

func TestListFlightsFilter(t *testing.T) {
	db, driver := newDBWithDriver(t)
	other := dbt.Driver{ID: uuid.New(), BusinessID: driver.BusinessID, Name: "Olim"}
	require.NoError(t, db.CreateDriver(&other))

	completed := ledger.Flight{ID: uuid.New(), BusinessID: driver.BusinessID, DriverID: driver.ID, Status: ledger.StatusCompleted}
	pending := ledger.Flight{ID: uuid.New(), BusinessID: driver.BusinessID, DriverID: driver.ID, Status: ledger.StatusPending}
	otherDriver := ledger.Flight{ID: uuid.New(), BusinessID: driver.BusinessID, DriverID: other.ID, Status: ledger.StatusCompleted}
	require.NoError(t, db.CreateFlight(&completed))
	require.NoError(t, db.CreateFlight(&pending))
	require.NoError(t, db.CreateFlight(&otherDriver))

	flights, err := db.ListFlights(dbt.RecordFilter{DriverID: driver.ID, Status: ledger.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, completed.ID, flights[0].ID)

	all, err := db.ListFlights(dbt.RecordFilter{BusinessID: driver.BusinessID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPaymentsAppendOnly(t *testing.T) {
	db, driver := newDBWithDriver(t)

	require.Error(t, db.AppendPayment(&ledger.Payment{ID: uuid.New(), DriverID: uuid.New()}), "payment for unknown driver rejected")

	p1 := ledger.Payment{ID: uuid.New(), DriverID: driver.ID, Amount: 100}
	p2 := ledger.Payment{ID: uuid.New(), DriverID: driver.ID, Amount: 250}
	require.NoError(t, db.AppendPayment(&p1))
	require.NoError(t, db.AppendPayment(&p2))

	payments, err := db.ListPayments(driver.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	all, err := db.ListPayments(uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
