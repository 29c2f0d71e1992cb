package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// Create drivers table
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE drivers (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(32),
			profit_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_drivers_business_id ON drivers(business_id);`)
	if err != nil {
		return err
	}

	// Create vehicles table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE vehicles (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL,
			plate VARCHAR(32) NOT NULL,
			model VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create trips table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trips (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL,
			driver_id UUID NOT NULL,
			vehicle_id UUID,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			odometer_start NUMERIC(12,2) DEFAULT 0,
			odometer_end NUMERIC(12,2) DEFAULT 0,
			traveled NUMERIC(12,2) DEFAULT 0,
			food_total NUMERIC(14,2) DEFAULT 0,
			driver_salary NUMERIC(14,2) DEFAULT 0,
			income NUMERIC(14,2) DEFAULT 0,
			fuel_total_liters NUMERIC(14,3) DEFAULT 0,
			fuel_total_base NUMERIC(14,2) DEFAULT 0,
			consumption NUMERIC(8,3) DEFAULT 0,
			road_total NUMERIC(14,2) DEFAULT 0,
			unexpected_total NUMERIC(14,2) DEFAULT 0,
			total_expenses NUMERIC(14,2) DEFAULT 0,
			profit NUMERIC(14,2) DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_trips_driver
				FOREIGN KEY(driver_id)
				REFERENCES drivers(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trips_driver_id ON trips(driver_id);`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trips_business_id_status ON trips(business_id, status);`)
	if err != nil {
		return err
	}

	// Create trip sub-entry tables
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_fuel_entries (
			trip_id UUID NOT NULL,
			position INT NOT NULL,
			country VARCHAR(64) NOT NULL,
			liters NUMERIC(12,3) DEFAULT 0,
			price_per_liter NUMERIC(14,2) DEFAULT 0,
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			amount_base NUMERIC(14,2) DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, position),
			CONSTRAINT fk_trip_fuel_entries_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_road_expenses (
			trip_id UUID NOT NULL,
			position INT NOT NULL,
			country VARCHAR(64) NOT NULL,
			amount NUMERIC(14,2) DEFAULT 0,
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			amount_base NUMERIC(14,2) DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, position),
			CONSTRAINT fk_trip_road_expenses_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_unexpected_expenses (
			trip_id UUID NOT NULL,
			position INT NOT NULL,
			name VARCHAR(255),
			amount NUMERIC(14,2) DEFAULT 0,
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			amount_base NUMERIC(14,2) DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, position),
			CONSTRAINT fk_trip_unexpected_expenses_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create flights table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE flights (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL,
			driver_id UUID NOT NULL,
			vehicle_id UUID,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			driver_profit_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			total_payment NUMERIC(14,2) DEFAULT 0,
			total_given_budget NUMERIC(14,2) DEFAULT 0,
			total_income NUMERIC(14,2) DEFAULT 0,
			light_expenses NUMERIC(14,2) DEFAULT 0,
			heavy_expenses NUMERIC(14,2) DEFAULT 0,
			total_expenses NUMERIC(14,2) DEFAULT 0,
			net_profit NUMERIC(14,2) DEFAULT 0,
			driver_profit_amount NUMERIC(14,2) DEFAULT 0,
			business_profit NUMERIC(14,2) DEFAULT 0,
			driver_owes NUMERIC(14,2) DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_flights_driver
				FOREIGN KEY(driver_id)
				REFERENCES drivers(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_flights_driver_id ON flights(driver_id);`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_flights_business_id_status ON flights(business_id, status);`)
	if err != nil {
		return err
	}

	// Create flight sub-entry tables
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE flight_legs (
			flight_id UUID NOT NULL,
			position INT NOT NULL,
			from_location VARCHAR(255),
			to_location VARCHAR(255),
			distance NUMERIC(12,2) DEFAULT 0,
			payment NUMERIC(14,2) DEFAULT 0,
			given_budget NUMERIC(14,2) DEFAULT 0,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (flight_id, position),
			CONSTRAINT fk_flight_legs_flight
				FOREIGN KEY(flight_id)
				REFERENCES flights(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE flight_expenses (
			flight_id UUID NOT NULL,
			position INT NOT NULL,
			type VARCHAR(64) NOT NULL,
			class VARCHAR(16) DEFAULT '',
			amount NUMERIC(14,2) DEFAULT 0,
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			quantity NUMERIC(12,3) DEFAULT 0,
			timing VARCHAR(16) DEFAULT '',
			date TIMESTAMPTZ,
			amount_base NUMERIC(14,2) DEFAULT 0,
			resolved VARCHAR(16) DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (flight_id, position),
			CONSTRAINT fk_flight_expenses_flight
				FOREIGN KEY(flight_id)
				REFERENCES flights(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create payments table (append-only)
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE payments (
			id UUID PRIMARY KEY,
			driver_id UUID NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			type VARCHAR(64) NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_payments_driver
				FOREIGN KEY(driver_id)
				REFERENCES drivers(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_payments_driver_id ON payments(driver_id);`)
	if err != nil {
		return err
	}

	return nil
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS payments;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS flight_expenses;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS flight_legs;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS flights;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS trip_unexpected_expenses;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS trip_road_expenses;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS trip_fuel_entries;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS trips;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS vehicles;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS drivers;`)
	if err != nil {
		return err
	}
	return nil
}
