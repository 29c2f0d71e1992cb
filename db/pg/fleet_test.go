package pg

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbt "fleetledger/db/db"
	"fleetledger/ledger"
)

var testDB *gorm.DB
var fleetDB dbt.FleetDBWrapper

func initTest(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" && os.Getenv("DATABASE_PASSWORD") == "" {
		t.Skip("no database configured, skipping postgres integration test")
	}
	var err error
	testDB, err = InitPostgresGORM(CreateDSN())
	require.NoError(t, err, "failed to initialize test database")

	fleetDB = NewGORMFleetDBWrapper(testDB)
}

func cleanupTest() {
	// delete in foreign-key order
	testDB.Exec("DELETE FROM flight_expenses;")
	testDB.Exec("DELETE FROM flight_legs;")
	testDB.Exec("DELETE FROM flights;")
	testDB.Exec("DELETE FROM trip_fuel_entries;")
	testDB.Exec("DELETE FROM trip_road_expenses;")
	testDB.Exec("DELETE FROM trip_unexpected_expenses;")
	testDB.Exec("DELETE FROM trips;")
	testDB.Exec("DELETE FROM payments;")
	testDB.Exec("DELETE FROM vehicles;")
	testDB.Exec("DELETE FROM drivers;")
	CloseGORM(testDB)
}

func seedDriver(t *testing.T) dbt.Driver {
	driver := dbt.Driver{
		ID:            uuid.New(),
		BusinessID:    uuid.New(),
		Name:          "Test Driver",
		ProfitPercent: 10,
	}
	require.NoError(t, fleetDB.CreateDriver(&driver))
	return driver
}

func TestTripRoundTrip(t *testing.T) {
	initTest(t)
	defer cleanupTest()

	driver := seedDriver(t)
	trip := ledger.Trip{
		ID:            uuid.New(),
		BusinessID:    driver.BusinessID,
		DriverID:      driver.ID,
		Status:        ledger.StatusInProgress,
		OdometerStart: 150000,
		OdometerEnd:   151200,
		Fuel: []ledger.FuelEntry{
			{Country: "UZ", Liters: 380, PricePerLiter: 12800, Currency: ledger.UZS, Rate: 12800},
		},
		RoadExpenses: []ledger.RoadExpense{
			{Country: "KZ", Amount: 24000, Currency: ledger.KZT, Rate: 480},
		},
		Income: 900,
	}
	ledger.RecomputeTrip(&trip, ledger.NewConverter(nil))

	require.NoError(t, fleetDB.CreateTrip(&trip))

	got, err := fleetDB.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.Traveled, got.Traveled)
	assert.Equal(t, trip.TotalExpenses, got.TotalExpenses)
	assert.Equal(t, trip.Profit, got.Profit)
	assert.Len(t, got.Fuel, 1)
	assert.Equal(t, trip.Fuel[0].AmountBase, got.Fuel[0].AmountBase)
	assert.Equal(t, trip.FuelSummary.Consumption, got.FuelSummary.Consumption)
	assert.Equal(t, trip.FuelSummary.ByCountry["UZ"], got.FuelSummary.ByCountry["UZ"])

	// mutate raw data, recompute, update, read back
	got.RoadExpenses = append(got.RoadExpenses, ledger.RoadExpense{Country: "UZ", Amount: 128000, Currency: ledger.UZS, Rate: 12800})
	ledger.RecomputeTrip(got, ledger.NewConverter(nil))
	require.NoError(t, fleetDB.UpdateTrip(got))

	updated, err := fleetDB.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Len(t, updated.RoadExpenses, 2)
	assert.Equal(t, got.RoadTotal, updated.RoadTotal)
}

func TestFlightRoundTrip(t *testing.T) {
	initTest(t)
	defer cleanupTest()

	driver := seedDriver(t)
	flight := ledger.Flight{
		ID:                  uuid.New(),
		BusinessID:          driver.BusinessID,
		DriverID:            driver.ID,
		Status:              ledger.StatusCompleted,
		DriverProfitPercent: 10,
		Legs: []ledger.Leg{
			{From: "Tashkent", To: "Almaty", Payment: 5000000, GivenBudget: 2000000, Status: ledger.StatusCompleted},
		},
		Expenses: []ledger.FlightExpense{
			{Type: "fuel_diesel", Amount: 1500000, Currency: ledger.USD},
		},
	}
	ledger.RecomputeFlight(&flight, ledger.NewConverter(nil))

	require.NoError(t, fleetDB.CreateFlight(&flight))

	got, err := fleetDB.GetFlight(flight.ID)
	require.NoError(t, err)
	assert.Equal(t, flight.NetProfit, got.NetProfit)
	assert.Equal(t, flight.DriverOwes, got.DriverOwes)
	assert.Len(t, got.Legs, 1)
	assert.Len(t, got.Expenses, 1)
	assert.Equal(t, ledger.ClassLight, got.Expenses[0].Resolved)

	flights, err := fleetDB.ListFlights(dbt.RecordFilter{DriverID: driver.ID, Status: ledger.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, flights, 1)
}

func TestSeedPreviousDebtOnce(t *testing.T) {
	initTest(t)
	defer cleanupTest()

	driver := seedDriver(t)

	require.NoError(t, fleetDB.SeedPreviousDebt(driver.ID, 500000))

	got, err := fleetDB.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 500000.0, got.PreviousDebt)
	assert.True(t, got.PreviousDebtSeeded)

	// second seed must be rejected
	err = fleetDB.SeedPreviousDebt(driver.ID, 999)
	assert.Error(t, err)
}

func TestUpdatePersistsZeroedDerivedFields(t *testing.T) {
	initTest(t)
	defer cleanupTest()

	driver := seedDriver(t)
	flight := ledger.Flight{
		ID:                  uuid.New(),
		BusinessID:          driver.BusinessID,
		DriverID:            driver.ID,
		Status:              ledger.StatusCompleted,
		DriverProfitPercent: 10,
		Legs: []ledger.Leg{
			{From: "Tashkent", To: "Almaty", Payment: 1000, Status: ledger.StatusCompleted},
		},
	}
	ledger.RecomputeFlight(&flight, ledger.NewConverter(nil))
	require.NoError(t, fleetDB.CreateFlight(&flight))
	require.NotZero(t, flight.NetProfit)

	// an expense equal to the payment drives every derived value to zero,
	// and the zeroes must survive the update
	flight.Expenses = []ledger.FlightExpense{
		{Type: "fuel_diesel", Amount: 1000, Currency: ledger.USD},
	}
	ledger.RecomputeFlight(&flight, ledger.NewConverter(nil))
	require.Zero(t, flight.NetProfit)
	require.NoError(t, fleetDB.UpdateFlight(&flight))

	got, err := fleetDB.GetFlight(flight.ID)
	require.NoError(t, err)
	assert.Zero(t, got.NetProfit)
	assert.Zero(t, got.DriverProfitAmount)
	assert.Zero(t, got.BusinessProfit)
	assert.Zero(t, got.DriverOwes)

	trip := ledger.Trip{
		ID:         uuid.New(),
		BusinessID: driver.BusinessID,
		DriverID:   driver.ID,
		Status:     ledger.StatusCompleted,
		Income:     500,
	}
	ledger.RecomputeTrip(&trip, ledger.NewConverter(nil))
	require.NoError(t, fleetDB.CreateTrip(&trip))
	require.NotZero(t, trip.Profit)

	trip.RoadExpenses = []ledger.RoadExpense{
		{Country: "UZ", Amount: 500, Currency: ledger.USD, Rate: 1},
	}
	ledger.RecomputeTrip(&trip, ledger.NewConverter(nil))
	require.Zero(t, trip.Profit)
	require.NoError(t, fleetDB.UpdateTrip(&trip))

	gotTrip, err := fleetDB.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Zero(t, gotTrip.Profit)
	assert.Equal(t, 500.0, gotTrip.TotalExpenses)
}

func TestPaymentsAppendOnly(t *testing.T) {
	initTest(t)
	defer cleanupTest()

	driver := seedDriver(t)
	payment := ledger.Payment{
		ID:       uuid.New(),
		DriverID: driver.ID,
		Amount:   400000,
		Type:     "driver_payment",
	}
	require.NoError(t, fleetDB.AppendPayment(&payment))

	payments, err := fleetDB.ListPayments(driver.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.Amount, payments[0].Amount)
}
