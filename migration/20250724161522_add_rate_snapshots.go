package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddRateSnapshots, downAddRateSnapshots)
}

// Conversion rates used to be looked up from the live table on every
// recompute, which made historical records drift whenever the rates
// changed. Each monetary entry now snapshots the rate in effect at
// entry time; zero means "table default".
func upAddRateSnapshots(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"trip_fuel_entries", "trip_road_expenses", "trip_unexpected_expenses", "flight_expenses"} {
		_, err := tx.ExecContext(ctx, `ALTER TABLE `+table+` ADD COLUMN rate NUMERIC(14,4) NOT NULL DEFAULT 0;`)
		if err != nil {
			return err
		}
	}
	return nil
}

func downAddRateSnapshots(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"trip_fuel_entries", "trip_road_expenses", "trip_unexpected_expenses", "flight_expenses"} {
		_, err := tx.ExecContext(ctx, `ALTER TABLE `+table+` DROP COLUMN IF EXISTS rate;`)
		if err != nil {
			return err
		}
	}
	return nil
}
