package pg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbt "fleetledger/db/db"
	"fleetledger/ledger"
)

// GORMFleetDBWrapper is a GORM-based PostgreSQL implementation of
// dbt.FleetDBWrapper.
type GORMFleetDBWrapper struct {
	db *gorm.DB
}

// NewGORMFleetDBWrapper creates and returns a new instance of GORMFleetDBWrapper.
func NewGORMFleetDBWrapper(db *gorm.DB) dbt.FleetDBWrapper {
	return &GORMFleetDBWrapper{
		db: db,
	}
}

// --- drivers ---

func (pgdb *GORMFleetDBWrapper) CreateDriver(d *dbt.Driver) error {
	model := DriverModel{
		ID:            d.ID,
		BusinessID:    d.BusinessID,
		Name:          d.Name,
		Phone:         d.Phone,
		ProfitPercent: d.ProfitPercent,
	}
	result := pgdb.db.Create(&model)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("driver with ID %s already exists: %w", d.ID, result.Error)
		}
		return fmt.Errorf("failed to create driver: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMFleetDBWrapper) GetDriver(id uuid.UUID) (*dbt.Driver, error) {
	var model DriverModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("driver with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get driver %s: %w", id, result.Error)
	}
	driver := driverFromModel(model)
	return &driver, nil
}

func (pgdb *GORMFleetDBWrapper) ListDrivers(businessID uuid.UUID) ([]dbt.Driver, error) {
	var models []DriverModel
	q := pgdb.db.Order("name")
	if businessID != uuid.Nil {
		q = q.Where("business_id = ?", businessID)
	}
	if result := q.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", result.Error)
	}
	drivers := make([]dbt.Driver, 0, len(models))
	for _, m := range models {
		drivers = append(drivers, driverFromModel(m))
	}
	return drivers, nil
}

func (pgdb *GORMFleetDBWrapper) UpdateDriver(d *dbt.Driver) error {
	result := pgdb.db.Model(&DriverModel{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
		"name":           d.Name,
		"phone":          d.Phone,
		"profit_percent": d.ProfitPercent,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update driver %s: %w", d.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("driver with ID %s not found", d.ID)
	}
	return nil
}

// SeedPreviousDebt writes the legacy balance exactly once; the guard
// column makes a second seed an error instead of a silent overwrite.
func (pgdb *GORMFleetDBWrapper) SeedPreviousDebt(id uuid.UUID, amount float64) error {
	result := pgdb.db.Model(&DriverModel{}).
		Where("id = ? AND previous_debt_seeded = false", id).
		Updates(map[string]interface{}{
			"previous_debt":        amount,
			"previous_debt_seeded": true,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to seed previous debt for driver %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("previous debt for driver %s already seeded or driver not found", id)
	}
	return nil
}

// --- vehicles ---

func (pgdb *GORMFleetDBWrapper) CreateVehicle(v *dbt.Vehicle) error {
	model := VehicleModel{ID: v.ID, BusinessID: v.BusinessID, Plate: v.Plate, Model: v.Model}
	if result := pgdb.db.Create(&model); result.Error != nil {
		return fmt.Errorf("failed to create vehicle: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMFleetDBWrapper) GetVehicle(id uuid.UUID) (*dbt.Vehicle, error) {
	var model VehicleModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("vehicle with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get vehicle %s: %w", id, result.Error)
	}
	return &dbt.Vehicle{ID: model.ID, BusinessID: model.BusinessID, Plate: model.Plate, Model: model.Model}, nil
}

// --- trips ---

func (pgdb *GORMFleetDBWrapper) CreateTrip(t *ledger.Trip) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(tripToModel(t)); result.Error != nil {
			if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
				return fmt.Errorf("trip with ID %s already exists: %w", t.ID, result.Error)
			}
			return fmt.Errorf("failed to create trip: %w", result.Error)
		}
		return createTripChildren(tx, t)
	})
}

func (pgdb *GORMFleetDBWrapper) GetTrip(id uuid.UUID) (*ledger.Trip, error) {
	var model TripModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get trip %s: %w", id, result.Error)
	}
	return pgdb.loadTrip(model)
}

// UpdateTrip replaces the whole trip: parent row plus all sub-entries
// in one transaction, so raw entries and their recomputed derived
// fields land together.
func (pgdb *GORMFleetDBWrapper) UpdateTrip(t *ledger.Trip) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		// explicit column list: struct updates skip zero values, and a
		// derived field recomputed down to 0 must still be written
		result := tx.Model(&TripModel{}).Where("id = ?", t.ID).
			Select("business_id", "driver_id", "vehicle_id", "status",
				"odometer_start", "odometer_end", "traveled",
				"food_total", "driver_salary", "income",
				"fuel_total_liters", "fuel_total_base", "consumption",
				"road_total", "unexpected_total", "total_expenses", "profit").
			Updates(tripToModel(t))
		if result.Error != nil {
			return fmt.Errorf("failed to update trip %s: %w", t.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("trip with ID %s not found", t.ID)
		}
		for _, child := range []interface{}{&TripFuelEntryModel{}, &TripRoadExpenseModel{}, &TripUnexpectedExpenseModel{}} {
			if err := tx.Where("trip_id = ?", t.ID).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to clear trip sub-entries for %s: %w", t.ID, err)
			}
		}
		return createTripChildren(tx, t)
	})
}

func (pgdb *GORMFleetDBWrapper) ListTrips(filter dbt.RecordFilter) ([]ledger.Trip, error) {
	var models []TripModel
	if result := applyFilter(pgdb.db, filter).Order("created_at").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list trips: %w", result.Error)
	}
	trips := make([]ledger.Trip, 0, len(models))
	for _, m := range models {
		trip, err := pgdb.loadTrip(m)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, nil
}

// --- flights ---

func (pgdb *GORMFleetDBWrapper) CreateFlight(f *ledger.Flight) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(flightToModel(f)); result.Error != nil {
			if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
				return fmt.Errorf("flight with ID %s already exists: %w", f.ID, result.Error)
			}
			return fmt.Errorf("failed to create flight: %w", result.Error)
		}
		return createFlightChildren(tx, f)
	})
}

func (pgdb *GORMFleetDBWrapper) GetFlight(id uuid.UUID) (*ledger.Flight, error) {
	var model FlightModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("flight with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get flight %s: %w", id, result.Error)
	}
	return pgdb.loadFlight(model)
}

func (pgdb *GORMFleetDBWrapper) UpdateFlight(f *ledger.Flight) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&FlightModel{}).Where("id = ?", f.ID).
			Select("business_id", "driver_id", "vehicle_id", "status",
				"driver_profit_percent", "driver_paid_amount",
				"total_payment", "total_given_budget", "total_income",
				"light_expenses", "heavy_expenses", "total_expenses",
				"net_profit", "driver_profit_amount", "business_profit", "driver_owes").
			Updates(flightToModel(f))
		if result.Error != nil {
			return fmt.Errorf("failed to update flight %s: %w", f.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("flight with ID %s not found", f.ID)
		}
		for _, child := range []interface{}{&FlightLegModel{}, &FlightExpenseModel{}} {
			if err := tx.Where("flight_id = ?", f.ID).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to clear flight sub-entries for %s: %w", f.ID, err)
			}
		}
		return createFlightChildren(tx, f)
	})
}

func (pgdb *GORMFleetDBWrapper) ListFlights(filter dbt.RecordFilter) ([]ledger.Flight, error) {
	var models []FlightModel
	if result := applyFilter(pgdb.db, filter).Order("created_at").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list flights: %w", result.Error)
	}
	flights := make([]ledger.Flight, 0, len(models))
	for _, m := range models {
		flight, err := pgdb.loadFlight(m)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *flight)
	}
	return flights, nil
}

// --- payments ---

func (pgdb *GORMFleetDBWrapper) AppendPayment(p *ledger.Payment) error {
	model := PaymentModel{
		ID:       p.ID,
		DriverID: p.DriverID,
		Date:     p.Date,
		Amount:   p.Amount,
		Type:     p.Type,
		Note:     p.Note,
	}
	if result := pgdb.db.Create(&model); result.Error != nil {
		if strings.Contains(result.Error.Error(), "violates foreign key constraint") {
			return fmt.Errorf("driver %s not found for payment: %w", p.DriverID, result.Error)
		}
		return fmt.Errorf("failed to append payment: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMFleetDBWrapper) ListPayments(driverID uuid.UUID) ([]ledger.Payment, error) {
	var models []PaymentModel
	q := pgdb.db.Order("date")
	if driverID != uuid.Nil {
		q = q.Where("driver_id = ?", driverID)
	}
	if result := q.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list payments: %w", result.Error)
	}
	payments := make([]ledger.Payment, 0, len(models))
	for _, m := range models {
		payments = append(payments, ledger.Payment{
			ID:       m.ID,
			DriverID: m.DriverID,
			Date:     m.Date,
			Amount:   m.Amount,
			Type:     m.Type,
			Note:     m.Note,
		})
	}
	return payments, nil
}

// --- conversions & helpers ---

func driverFromModel(m DriverModel) dbt.Driver {
	return dbt.Driver{
		ID:                 m.ID,
		BusinessID:         m.BusinessID,
		Name:               m.Name,
		Phone:              m.Phone,
		ProfitPercent:      m.ProfitPercent,
		PreviousDebt:       m.PreviousDebt,
		PreviousDebtSeeded: m.PreviousDebtSeeded,
	}
}

func applyFilter(q *gorm.DB, filter dbt.RecordFilter) *gorm.DB {
	if filter.ID != uuid.Nil {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.BusinessID != uuid.Nil {
		q = q.Where("business_id = ?", filter.BusinessID)
	}
	if filter.DriverID != uuid.Nil {
		q = q.Where("driver_id = ?", filter.DriverID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}
	return q
}

func tripToModel(t *ledger.Trip) *TripModel {
	return &TripModel{
		ID:              t.ID,
		BusinessID:      t.BusinessID,
		DriverID:        t.DriverID,
		VehicleID:       t.VehicleID,
		Status:          string(t.Status),
		OdometerStart:   t.OdometerStart,
		OdometerEnd:     t.OdometerEnd,
		Traveled:        t.Traveled,
		FoodTotal:       t.FoodTotal,
		DriverSalary:    t.DriverSalary,
		Income:          t.Income,
		FuelTotalLiters: t.FuelSummary.TotalLiters,
		FuelTotalBase:   t.FuelSummary.TotalBase,
		Consumption:     t.FuelSummary.Consumption,
		RoadTotal:       t.RoadTotal,
		UnexpectedTotal: t.UnexpectedTotal,
		TotalExpenses:   t.TotalExpenses,
		Profit:          t.Profit,
	}
}

func createTripChildren(tx *gorm.DB, t *ledger.Trip) error {
	if len(t.Fuel) > 0 {
		models := make([]TripFuelEntryModel, 0, len(t.Fuel))
		for i, entry := range t.Fuel {
			models = append(models, TripFuelEntryModel{
				TripID:        t.ID,
				Position:      i,
				Country:       entry.Country,
				Liters:        entry.Liters,
				PricePerLiter: entry.PricePerLiter,
				Currency:      string(entry.Currency),
				Rate:          entry.Rate,
				AmountBase:    entry.AmountBase,
			})
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to create fuel entries for trip %s: %w", t.ID, err)
		}
	}
	if len(t.RoadExpenses) > 0 {
		models := make([]TripRoadExpenseModel, 0, len(t.RoadExpenses))
		for i, exp := range t.RoadExpenses {
			models = append(models, TripRoadExpenseModel{
				TripID:     t.ID,
				Position:   i,
				Country:    exp.Country,
				Amount:     exp.Amount,
				Currency:   string(exp.Currency),
				Rate:       exp.Rate,
				AmountBase: exp.AmountBase,
			})
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to create road expenses for trip %s: %w", t.ID, err)
		}
	}
	if len(t.Unexpected) > 0 {
		models := make([]TripUnexpectedExpenseModel, 0, len(t.Unexpected))
		for i, exp := range t.Unexpected {
			models = append(models, TripUnexpectedExpenseModel{
				TripID:     t.ID,
				Position:   i,
				Name:       exp.Name,
				Amount:     exp.Amount,
				Currency:   string(exp.Currency),
				Rate:       exp.Rate,
				AmountBase: exp.AmountBase,
			})
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to create unexpected expenses for trip %s: %w", t.ID, err)
		}
	}
	return nil
}

func (pgdb *GORMFleetDBWrapper) loadTrip(model TripModel) (*ledger.Trip, error) {
	trip := &ledger.Trip{
		ID:            model.ID,
		BusinessID:    model.BusinessID,
		DriverID:      model.DriverID,
		VehicleID:     model.VehicleID,
		Status:        ledger.Status(model.Status),
		OdometerStart: model.OdometerStart,
		OdometerEnd:   model.OdometerEnd,
		Traveled:      model.Traveled,
		FoodTotal:     model.FoodTotal,
		DriverSalary:  model.DriverSalary,
		Income:        model.Income,
		FuelSummary: ledger.FuelSummary{
			ByCountry:   make(map[string]ledger.CountryFuel),
			TotalLiters: model.FuelTotalLiters,
			TotalBase:   model.FuelTotalBase,
			Consumption: model.Consumption,
		},
		RoadTotal:       model.RoadTotal,
		UnexpectedTotal: model.UnexpectedTotal,
		TotalExpenses:   model.TotalExpenses,
		Profit:          model.Profit,
	}

	var fuelModels []TripFuelEntryModel
	if err := pgdb.db.Where("trip_id = ?", model.ID).Order("position").Find(&fuelModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load fuel entries for trip %s: %w", model.ID, err)
	}
	for _, fm := range fuelModels {
		trip.Fuel = append(trip.Fuel, ledger.FuelEntry{
			Country:       fm.Country,
			Liters:        fm.Liters,
			PricePerLiter: fm.PricePerLiter,
			Currency:      ledger.Currency(fm.Currency),
			Rate:          fm.Rate,
			AmountBase:    fm.AmountBase,
		})
		bucket := trip.FuelSummary.ByCountry[fm.Country]
		bucket.Liters += fm.Liters
		bucket.AmountBase = ledger.Round2(bucket.AmountBase + fm.AmountBase)
		trip.FuelSummary.ByCountry[fm.Country] = bucket
	}

	var roadModels []TripRoadExpenseModel
	if err := pgdb.db.Where("trip_id = ?", model.ID).Order("position").Find(&roadModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load road expenses for trip %s: %w", model.ID, err)
	}
	for _, rm := range roadModels {
		trip.RoadExpenses = append(trip.RoadExpenses, ledger.RoadExpense{
			Country:    rm.Country,
			Amount:     rm.Amount,
			Currency:   ledger.Currency(rm.Currency),
			Rate:       rm.Rate,
			AmountBase: rm.AmountBase,
		})
	}

	var unexpectedModels []TripUnexpectedExpenseModel
	if err := pgdb.db.Where("trip_id = ?", model.ID).Order("position").Find(&unexpectedModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load unexpected expenses for trip %s: %w", model.ID, err)
	}
	for _, um := range unexpectedModels {
		trip.Unexpected = append(trip.Unexpected, ledger.UnexpectedExpense{
			Name:       um.Name,
			Amount:     um.Amount,
			Currency:   ledger.Currency(um.Currency),
			Rate:       um.Rate,
			AmountBase: um.AmountBase,
		})
	}

	return trip, nil
}

func flightToModel(f *ledger.Flight) *FlightModel {
	return &FlightModel{
		ID:                  f.ID,
		BusinessID:          f.BusinessID,
		DriverID:            f.DriverID,
		VehicleID:           f.VehicleID,
		Status:              string(f.Status),
		DriverProfitPercent: f.DriverProfitPercent,
		DriverPaidAmount:    f.DriverPaidAmount,
		TotalPayment:        f.TotalPayment,
		TotalGivenBudget:    f.TotalGivenBudget,
		TotalIncome:         f.TotalIncome,
		LightExpenses:       f.LightExpenses,
		HeavyExpenses:       f.HeavyExpenses,
		TotalExpenses:       f.TotalExpenses,
		NetProfit:           f.NetProfit,
		DriverProfitAmount:  f.DriverProfitAmount,
		BusinessProfit:      f.BusinessProfit,
		DriverOwes:          f.DriverOwes,
	}
}

func createFlightChildren(tx *gorm.DB, f *ledger.Flight) error {
	if len(f.Legs) > 0 {
		models := make([]FlightLegModel, 0, len(f.Legs))
		for i, leg := range f.Legs {
			models = append(models, FlightLegModel{
				FlightID:     f.ID,
				Position:     i,
				FromLocation: leg.From,
				ToLocation:   leg.To,
				Distance:     leg.Distance,
				Payment:      leg.Payment,
				GivenBudget:  leg.GivenBudget,
				Status:       string(leg.Status),
			})
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to create legs for flight %s: %w", f.ID, err)
		}
	}
	if len(f.Expenses) > 0 {
		models := make([]FlightExpenseModel, 0, len(f.Expenses))
		for i, exp := range f.Expenses {
			models = append(models, FlightExpenseModel{
				FlightID:   f.ID,
				Position:   i,
				Type:       exp.Type,
				Class:      string(exp.Class),
				Amount:     exp.Amount,
				Currency:   string(exp.Currency),
				Rate:       exp.Rate,
				Quantity:   exp.Quantity,
				Timing:     string(exp.Timing),
				Date:       exp.Date,
				AmountBase: exp.AmountBase,
				Resolved:   string(exp.Resolved),
			})
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to create expenses for flight %s: %w", f.ID, err)
		}
	}
	return nil
}

func (pgdb *GORMFleetDBWrapper) loadFlight(model FlightModel) (*ledger.Flight, error) {
	flight := &ledger.Flight{
		ID:                  model.ID,
		BusinessID:          model.BusinessID,
		DriverID:            model.DriverID,
		VehicleID:           model.VehicleID,
		Status:              ledger.Status(model.Status),
		DriverProfitPercent: model.DriverProfitPercent,
		DriverPaidAmount:    model.DriverPaidAmount,
		TotalPayment:        model.TotalPayment,
		TotalGivenBudget:    model.TotalGivenBudget,
		TotalIncome:         model.TotalIncome,
		LightExpenses:       model.LightExpenses,
		HeavyExpenses:       model.HeavyExpenses,
		TotalExpenses:       model.TotalExpenses,
		NetProfit:           model.NetProfit,
		DriverProfitAmount:  model.DriverProfitAmount,
		BusinessProfit:      model.BusinessProfit,
		DriverOwes:          model.DriverOwes,
	}

	var legModels []FlightLegModel
	if err := pgdb.db.Where("flight_id = ?", model.ID).Order("position").Find(&legModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load legs for flight %s: %w", model.ID, err)
	}
	for _, lm := range legModels {
		flight.Legs = append(flight.Legs, ledger.Leg{
			From:        lm.FromLocation,
			To:          lm.ToLocation,
			Distance:    lm.Distance,
			Payment:     lm.Payment,
			GivenBudget: lm.GivenBudget,
			Status:      ledger.Status(lm.Status),
		})
	}

	var expenseModels []FlightExpenseModel
	if err := pgdb.db.Where("flight_id = ?", model.ID).Order("position").Find(&expenseModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load expenses for flight %s: %w", model.ID, err)
	}
	for _, em := range expenseModels {
		flight.Expenses = append(flight.Expenses, ledger.FlightExpense{
			Type:       em.Type,
			Class:      ledger.ExpenseClass(em.Class),
			Amount:     em.Amount,
			Currency:   ledger.Currency(em.Currency),
			Rate:       em.Rate,
			Quantity:   em.Quantity,
			Timing:     ledger.ExpenseTiming(em.Timing),
			Date:       em.Date,
			AmountBase: em.AmountBase,
			Resolved:   ledger.ExpenseClass(em.Resolved),
		})
	}

	return flight, nil
}
