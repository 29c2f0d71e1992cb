package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "fleetledger/db/db"
	"fleetledger/db/mem"
	"fleetledger/ledger"
	"fleetledger/web"
)

type testEnv struct {
	router *gin.Engine
	store  dbt.FleetDBWrapper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := mem.NewInMemoryFleetDBWrapper()
	router := web.NewRouter(web.ServiceConfig{
		IsDev: true,
		Store: store,
		Conv:  ledger.NewConverter(ledger.DefaultRates()),
		Log:   log,
	})
	return &testEnv{router: router, store: store}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTripFuelFlow(t *testing.T) {
	env := newTestEnv(t)
	driverID := uuid.New()

	w := env.do(t, http.MethodPost, "/api/trips", gin.H{
		"driverId":      driverID,
		"status":        "completed",
		"odometerStart": 1000,
		"odometerEnd":   2200,
		"income":        12000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Trip ledger.Trip `json:"trip"`
	}
	decode(t, w, &created)
	assert.Equal(t, 1200.0, created.Trip.Traveled)

	w = env.do(t, http.MethodPost, "/api/trips/"+created.Trip.ID.String()+"/fuel", ledger.FuelEntry{
		Country:       "UZ",
		Liters:        380,
		PricePerLiter: 8000,
		Currency:      ledger.UZS,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.GetTrip(created.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 380.0, stored.FuelSummary.TotalLiters)
	assert.Equal(t, 31.667, stored.FuelSummary.Consumption)
	assert.Equal(t, 237.5, stored.FuelSummary.TotalBase) // 3,040,000 UZS at 12800

	w = env.do(t, http.MethodPost, "/api/trips/"+created.Trip.ID.String()+"/expenses", gin.H{
		"kind":     "road",
		"country":  "KZ",
		"amount":   48000,
		"currency": "KZT",
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = env.store.GetTrip(created.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.RoadTotal) // 48,000 KZT at 480
}

func TestTripExpenseUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/trips", gin.H{"driverId": uuid.New()})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Trip ledger.Trip `json:"trip"`
	}
	decode(t, w, &created)

	w = env.do(t, http.MethodPost, "/api/trips/"+created.Trip.ID.String()+"/expenses", gin.H{
		"kind":   "fancy",
		"amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func createTestFlight(t *testing.T, env *testEnv, driverID uuid.UUID, businessID uuid.UUID) ledger.Flight {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/flights", gin.H{
		"businessId":          businessID,
		"driverId":            driverID,
		"status":              "completed",
		"driverProfitPercent": 10,
		"legs": []gin.H{
			{"From": "Tashkent", "To": "Moscow", "Payment": 5000000, "GivenBudget": 500000, "Status": "completed"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Flight ledger.Flight `json:"flight"`
	}
	decode(t, w, &created)
	return created.Flight
}

func TestFlightExpenseAndSplit(t *testing.T) {
	env := newTestEnv(t)
	flight := createTestFlight(t, env, uuid.New(), uuid.New())

	w := env.do(t, http.MethodPost, "/api/flights/"+flight.ID.String()+"/expenses", ledger.FlightExpense{
		Type: "fuel", Amount: 1000000, Currency: ledger.USD, Timing: ledger.TimingDuring,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// heavy expense must not change the split
	w = env.do(t, http.MethodPost, "/api/flights/"+flight.ID.String()+"/expenses", ledger.FlightExpense{
		Type: "repair_major", Amount: 800000, Currency: ledger.USD, Timing: ledger.TimingAfter,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.GetFlight(flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 5500000.0, stored.TotalIncome)
	assert.Equal(t, 1000000.0, stored.LightExpenses)
	assert.Equal(t, 800000.0, stored.HeavyExpenses)
	assert.Equal(t, 4000000.0, stored.NetProfit)
	assert.Equal(t, 400000.0, stored.DriverProfitAmount)
	assert.Equal(t, 3600000.0, stored.DriverOwes)
}

func TestFlightExpenseConcurrentPosts(t *testing.T) {
	env := newTestEnv(t)
	flight := createTestFlight(t, env, uuid.New(), uuid.New())

	const posts = 16
	var wg sync.WaitGroup
	wg.Add(posts)
	for i := 0; i < posts; i++ {
		go func() {
			defer wg.Done()
			w := env.do(t, http.MethodPost, "/api/flights/"+flight.ID.String()+"/expenses", ledger.FlightExpense{
				Type: "fuel", Amount: 1000, Currency: ledger.USD, Timing: ledger.TimingDuring,
			})
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	stored, err := env.store.GetFlight(flight.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Expenses, posts)
	assert.Equal(t, float64(posts*1000), stored.LightExpenses)
}

func TestFlightLegUpdate(t *testing.T) {
	env := newTestEnv(t)
	flight := createTestFlight(t, env, uuid.New(), uuid.New())

	w := env.do(t, http.MethodPut, "/api/flights/"+flight.ID.String()+"/legs/0", ledger.Leg{
		From: "Tashkent", To: "Moscow", Payment: 6000000, GivenBudget: 500000, Status: ledger.StatusCompleted,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.GetFlight(flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 6000000.0, stored.TotalPayment)

	w = env.do(t, http.MethodPut, "/api/flights/"+flight.ID.String()+"/legs/5", ledger.Leg{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightPayAndDebtReport(t *testing.T) {
	env := newTestEnv(t)
	businessID := uuid.New()
	driverID := uuid.New()
	require.NoError(t, env.store.CreateDriver(&dbt.Driver{
		ID: driverID, BusinessID: businessID, Name: "Bekzod", ProfitPercent: 10,
	}))

	flight := createTestFlight(t, env, driverID, businessID)
	// netProfit 5,000,000, driver share 500,000, owes 4,500,000

	w := env.do(t, http.MethodPost, "/api/flights/"+flight.ID.String()+"/pay", gin.H{"amount": 1500000})
	require.Equal(t, http.StatusOK, w.Code)
	var payResp struct {
		Remaining float64 `json:"remaining"`
	}
	decode(t, w, &payResp)
	assert.Equal(t, 3000000.0, payResp.Remaining)

	w = env.do(t, http.MethodGet, "/api/driver-debts?businessId="+businessID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var debts struct {
		Drivers []struct {
			DriverID uuid.UUID          `json:"driverId"`
			Summary  ledger.DebtSummary `json:"summary"`
			Report   ledger.DebtReport  `json:"report"`
		} `json:"drivers"`
	}
	decode(t, w, &debts)
	require.Len(t, debts.Drivers, 1)
	assert.Equal(t, driverID, debts.Drivers[0].DriverID)
	assert.Equal(t, 3000000.0, debts.Drivers[0].Summary.TotalDebt)
	assert.Equal(t, 1, debts.Drivers[0].Report.PendingCount)

	// once fully paid the pending filter hides the flight
	w = env.do(t, http.MethodPost, "/api/flights/"+flight.ID.String()+"/pay", gin.H{"amount": 3000000})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/driver-debts?businessId="+businessID.String()+"&status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &debts)
	require.Len(t, debts.Drivers, 1)
	assert.Empty(t, debts.Drivers[0].Report.Rows)
	assert.Zero(t, debts.Drivers[0].Summary.TotalDebt)
}

func TestDriverDebtsRequiresBusinessID(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/driver-debts", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/driver-debts?businessId="+uuid.NewString()+"&status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeedPreviousDebtOnce(t *testing.T) {
	env := newTestEnv(t)
	driverID := uuid.New()
	require.NoError(t, env.store.CreateDriver(&dbt.Driver{ID: driverID, Name: "Olim"}))

	w := env.do(t, http.MethodPost, "/api/drivers/"+driverID.String()+"/previous-debt", gin.H{"amount": 650000})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/drivers/"+driverID.String()+"/previous-debt", gin.H{"amount": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	driver, err := env.store.GetDriver(driverID)
	require.NoError(t, err)
	assert.Equal(t, 650000.0, driver.PreviousDebt)
}

func TestRecomputeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	driverID := uuid.New()

	// stored flight with stale derived fields
	require.NoError(t, env.store.CreateFlight(&ledger.Flight{
		ID:                  uuid.New(),
		DriverID:            driverID,
		Status:              ledger.StatusCompleted,
		DriverProfitPercent: 10,
		Legs:                []ledger.Leg{{Payment: 5000000, Status: ledger.StatusCompleted}},
	}))

	w := env.do(t, http.MethodPost, "/api/recompute", gin.H{"driverId": driverID})
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		ProcessedFlights int `json:"ProcessedFlights"`
		Drifted          int `json:"Drifted"`
	}
	decode(t, w, &report)
	assert.Equal(t, 1, report.ProcessedFlights)
	assert.Equal(t, 1, report.Drifted)
}
