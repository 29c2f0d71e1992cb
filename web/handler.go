package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetledger/db/db"
	"fleetledger/job"
	"fleetledger/ledger"
	"fleetledger/mq/mq"
)

// Server holds the HTTP boundary's collaborators. Every write handler
// follows the same shape: mutate the raw entries, recompute the
// derived fields, persist the whole record, publish the update.
type Server struct {
	store  db.FleetDBWrapper
	conv   ledger.Converter
	queues mq.LedgerMessageQueueWrapper
	log    *logrus.Logger

	// one mutex per record id, so concurrent read-modify-write cycles
	// on the same trip or flight serialize instead of losing writes
	recordLocks sync.Map
}

func (s *Server) lockRecord(id uuid.UUID) func() {
	val, _ := s.recordLocks.LoadOrStore(id, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func warningsPayload(warnings []ledger.Warning) []gin.H {
	out := make([]gin.H, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, gin.H{
			"level":   w.Level.String(),
			"field":   w.Field,
			"message": w.Message,
		})
	}
	return out
}

func (s *Server) logWarnings(record uuid.UUID, warnings []ledger.Warning) {
	for _, w := range warnings {
		entry := s.log.WithFields(logrus.Fields{"record": record, "field": w.Field})
		if w.Level == ledger.WarnInvariant {
			entry.Warn(w.Message)
		} else {
			entry.Info(w.Message)
		}
	}
}

func (s *Server) publish(action mq.Action, msg mq.LedgerRecordMessage) {
	if s.queues == nil {
		return
	}
	q := s.queues.GetLedgerRecordMessageQueue(action)
	if q == nil {
		return
	}
	if err := q.Publish(msg); err != nil {
		s.log.WithError(err).WithField("record", msg.ID).Warn("failed to publish ledger event")
	}
}

func tripMessage(t *ledger.Trip) mq.LedgerRecordMessage {
	return mq.LedgerRecordMessage{
		ID:          t.ID,
		Kind:        mq.RecordKindTrip,
		DriverID:    t.DriverID,
		TotalIncome: t.Income,
		NetProfit:   t.Profit,
	}
}

func flightMessage(f *ledger.Flight) mq.LedgerRecordMessage {
	return mq.LedgerRecordMessage{
		ID:          f.ID,
		Kind:        mq.RecordKindFlight,
		DriverID:    f.DriverID,
		TotalIncome: f.TotalIncome,
		NetProfit:   f.NetProfit,
		DriverOwes:  f.DriverOwes,
	}
}

// --- drivers ---

type createDriverRequest struct {
	BusinessID    uuid.UUID `json:"businessId"`
	Name          string    `json:"name" binding:"required"`
	Phone         string    `json:"phone"`
	ProfitPercent float64   `json:"profitPercent"`
}

func (s *Server) createDriver(c *gin.Context) {
	var req createDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver := &db.Driver{
		ID:            uuid.New(),
		BusinessID:    req.BusinessID,
		Name:          req.Name,
		Phone:         req.Phone,
		ProfitPercent: req.ProfitPercent,
	}
	if err := s.store.CreateDriver(driver); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (s *Server) getDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	driver, err := s.store.GetDriver(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, driver)
}

type seedDebtRequest struct {
	Amount float64 `json:"amount"`
}

// seedPreviousDebt backfills the legacy balance carried over from
// before the ledger existed. It works exactly once per driver.
func (s *Server) seedPreviousDebt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req seedDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SeedPreviousDebt(id, req.Amount); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"driverId": id, "previousDebt": req.Amount})
}

// --- trips ---

type createTripRequest struct {
	BusinessID    uuid.UUID     `json:"businessId"`
	DriverID      uuid.UUID     `json:"driverId" binding:"required"`
	VehicleID     uuid.UUID     `json:"vehicleId"`
	Status        ledger.Status `json:"status"`
	OdometerStart float64       `json:"odometerStart"`
	OdometerEnd   float64       `json:"odometerEnd"`
	Traveled      float64       `json:"traveled"`
	FoodTotal     float64       `json:"foodTotal"`
	DriverSalary  float64       `json:"driverSalary"`
	Income        float64       `json:"income"`
}

func (s *Server) createTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip := &ledger.Trip{
		ID:            uuid.New(),
		BusinessID:    req.BusinessID,
		DriverID:      req.DriverID,
		VehicleID:     req.VehicleID,
		Status:        req.Status,
		OdometerStart: req.OdometerStart,
		OdometerEnd:   req.OdometerEnd,
		Traveled:      req.Traveled,
		FoodTotal:     req.FoodTotal,
		DriverSalary:  req.DriverSalary,
		Income:        req.Income,
	}
	if trip.Status == "" {
		trip.Status = ledger.StatusPending
	}
	warnings := ledger.RecomputeTrip(trip, s.conv)
	s.logWarnings(trip.ID, warnings)

	if err := s.store.CreateTrip(trip); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionCreate, tripMessage(trip))
	c.JSON(http.StatusCreated, gin.H{"trip": trip, "warnings": warningsPayload(warnings)})
}

func (s *Server) getTrip(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	trip, err := s.store.GetTrip(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (s *Server) addTripFuel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var entry ledger.FuelEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	defer s.lockRecord(id)()
	trip, err := s.store.GetTrip(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	trip.Fuel = append(trip.Fuel, entry)
	warnings := ledger.RecomputeTrip(trip, s.conv)
	s.logWarnings(trip.ID, warnings)

	if err := s.store.UpdateTrip(trip); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionUpdate, tripMessage(trip))
	c.JSON(http.StatusOK, gin.H{"trip": trip, "warnings": warningsPayload(warnings)})
}

// tripExpenseRequest is a tagged union: exactly one expense family per
// call, selected by Kind.
type tripExpenseRequest struct {
	Kind string `json:"kind" binding:"required"` // road, unexpected, food, salary

	Country  string          `json:"country"`
	Name     string          `json:"name"`
	Amount   float64         `json:"amount"`
	Currency ledger.Currency `json:"currency"`
	Rate     float64         `json:"rate"`
}

func (s *Server) addTripExpense(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req tripExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	defer s.lockRecord(id)()
	trip, err := s.store.GetTrip(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	switch req.Kind {
	case "road":
		trip.RoadExpenses = append(trip.RoadExpenses, ledger.RoadExpense{
			Country:  req.Country,
			Amount:   req.Amount,
			Currency: req.Currency,
			Rate:     req.Rate,
		})
	case "unexpected":
		trip.Unexpected = append(trip.Unexpected, ledger.UnexpectedExpense{
			Name:     req.Name,
			Amount:   req.Amount,
			Currency: req.Currency,
			Rate:     req.Rate,
		})
	case "food":
		trip.FoodTotal = ledger.Round2(trip.FoodTotal + req.Amount)
	case "salary":
		trip.DriverSalary = ledger.Round2(trip.DriverSalary + req.Amount)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown expense kind: " + req.Kind})
		return
	}

	warnings := ledger.RecomputeTrip(trip, s.conv)
	s.logWarnings(trip.ID, warnings)

	if err := s.store.UpdateTrip(trip); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionUpdate, tripMessage(trip))
	c.JSON(http.StatusOK, gin.H{"trip": trip, "warnings": warningsPayload(warnings)})
}

// --- flights ---

type createFlightRequest struct {
	BusinessID          uuid.UUID     `json:"businessId"`
	DriverID            uuid.UUID     `json:"driverId" binding:"required"`
	VehicleID           uuid.UUID     `json:"vehicleId"`
	Status              ledger.Status `json:"status"`
	DriverProfitPercent float64       `json:"driverProfitPercent"`
	Legs                []ledger.Leg  `json:"legs"`
}

func (s *Server) createFlight(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flight := &ledger.Flight{
		ID:                  uuid.New(),
		BusinessID:          req.BusinessID,
		DriverID:            req.DriverID,
		VehicleID:           req.VehicleID,
		Status:              req.Status,
		DriverProfitPercent: req.DriverProfitPercent,
		Legs:                req.Legs,
	}
	if flight.Status == "" {
		flight.Status = ledger.StatusPending
	}
	warnings := ledger.RecomputeFlight(flight, s.conv)
	s.logWarnings(flight.ID, warnings)

	if err := s.store.CreateFlight(flight); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionCreate, flightMessage(flight))
	c.JSON(http.StatusCreated, gin.H{"flight": flight, "warnings": warningsPayload(warnings)})
}

func (s *Server) getFlight(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	flight, err := s.store.GetFlight(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (s *Server) addFlightExpense(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var expense ledger.FlightExpense
	if err := c.ShouldBindJSON(&expense); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	defer s.lockRecord(id)()
	flight, err := s.store.GetFlight(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	flight.Expenses = append(flight.Expenses, expense)
	warnings := ledger.RecomputeFlight(flight, s.conv)
	s.logWarnings(flight.ID, warnings)

	if err := s.store.UpdateFlight(flight); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionUpdate, flightMessage(flight))
	c.JSON(http.StatusOK, gin.H{"flight": flight, "warnings": warningsPayload(warnings)})
}

// updateFlightLeg replaces one leg in place; the index addresses the
// ordered leg list.
func (s *Server) updateFlightLeg(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leg index"})
		return
	}
	var leg ledger.Leg
	if err := c.ShouldBindJSON(&leg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	defer s.lockRecord(id)()
	flight, err := s.store.GetFlight(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if index >= len(flight.Legs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leg index out of range"})
		return
	}

	flight.Legs[index] = leg
	warnings := ledger.RecomputeFlight(flight, s.conv)
	s.logWarnings(flight.ID, warnings)

	if err := s.store.UpdateFlight(flight); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionUpdate, flightMessage(flight))
	c.JSON(http.StatusOK, gin.H{"flight": flight, "warnings": warningsPayload(warnings)})
}

type flightPayRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// recordFlightPayment books a remittance the driver made against this
// flight's DriverOwes. It does not touch the driver payment log, which
// tracks earnings payouts and is written elsewhere.
func (s *Server) recordFlightPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req flightPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	defer s.lockRecord(id)()
	flight, err := s.store.GetFlight(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	flight.DriverPaidAmount = ledger.Round2(flight.DriverPaidAmount + req.Amount)
	warnings := ledger.RecomputeFlight(flight, s.conv)
	s.logWarnings(flight.ID, warnings)

	if err := s.store.UpdateFlight(flight); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(mq.ActionUpdate, flightMessage(flight))

	remaining := ledger.Round2(ledger.DriverOwesAmount(flight) - flight.DriverPaidAmount)
	c.JSON(http.StatusOK, gin.H{
		"flight":    flight,
		"remaining": remaining,
		"warnings":  warningsPayload(warnings),
	})
}

// --- reports ---

type driverDebtEntry struct {
	DriverID uuid.UUID          `json:"driverId"`
	Name     string             `json:"name"`
	Summary  ledger.DebtSummary `json:"summary"`
	Report   ledger.DebtReport  `json:"report"`
}

// driverDebts is the read boundary: per-driver reconciled debt built
// from completed flights, trips, the payment log and the seeded
// previous balance.
func (s *Server) driverDebts(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("businessId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "businessId query parameter is required"})
		return
	}

	filter := ledger.DebtStatusFilter(c.Query("status"))
	switch filter {
	case ledger.FilterAll, ledger.FilterPending, ledger.FilterPaid:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, paid or empty"})
		return
	}

	var drivers []db.Driver
	if q := c.Query("driverId"); q != "" {
		driverID, err := uuid.Parse(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid driverId"})
			return
		}
		driver, err := s.store.GetDriver(driverID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		drivers = []db.Driver{*driver}
	} else {
		drivers, err = s.store.ListDrivers(businessID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	entries := make([]driverDebtEntry, 0, len(drivers))
	for i := range drivers {
		d := &drivers[i]
		entry, err := s.buildDriverDebt(d, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, gin.H{"businessId": businessID, "drivers": entries})
}

func (s *Server) buildDriverDebt(d *db.Driver, filter ledger.DebtStatusFilter) (driverDebtEntry, error) {
	recordFilter := db.RecordFilter{BusinessID: d.BusinessID, DriverID: d.ID}

	flights, err := s.store.ListFlights(recordFilter)
	if err != nil {
		return driverDebtEntry{}, err
	}
	trips, err := s.store.ListTrips(recordFilter)
	if err != nil {
		return driverDebtEntry{}, err
	}
	payments, err := s.store.ListPayments(d.ID)
	if err != nil {
		return driverDebtEntry{}, err
	}

	return driverDebtEntry{
		DriverID: d.ID,
		Name:     d.Name,
		Summary:  ledger.Reconcile(flights, trips, payments, d.PreviousDebt),
		Report:   ledger.BuildDebtReport(flights, d.PreviousDebt, filter),
	}, nil
}

// --- recompute ---

type recomputeRequest struct {
	BusinessID uuid.UUID `json:"businessId"`
	DriverID   uuid.UUID `json:"driverId"`
	RecordID   uuid.UUID `json:"recordId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Workers    int       `json:"workers"`
	DryRun     bool      `json:"dryRun"`
}

// triggerRecompute runs a sweep synchronously and returns its report.
func (s *Server) triggerRecompute(c *gin.Context) {
	var req recomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	rec := job.NewRecomputer(s.store, s.conv, s.queues, s.log)
	report, err := rec.Run(c.Request.Context(), job.Options{
		BusinessID: req.BusinessID,
		DriverID:   req.DriverID,
		RecordID:   req.RecordID,
		From:       req.From,
		To:         req.To,
		Workers:    req.Workers,
		DryRun:     req.DryRun,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
