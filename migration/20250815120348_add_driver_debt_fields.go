package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddDriverDebtFields, downAddDriverDebtFields)
}

// previous_debt carries the legacy balance over from the pre-migration
// bookkeeping; the seeded flag makes the one-shot backfill path
// re-runnable without double counting. driver_paid_amount tracks what
// a driver already remitted against a flight's driver_owes.
func upAddDriverDebtFields(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE drivers ADD COLUMN previous_debt NUMERIC(14,2) NOT NULL DEFAULT 0;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE drivers ADD COLUMN previous_debt_seeded BOOLEAN NOT NULL DEFAULT FALSE;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE flights ADD COLUMN driver_paid_amount NUMERIC(14,2) NOT NULL DEFAULT 0;`)
	if err != nil {
		return err
	}
	return nil
}

func downAddDriverDebtFields(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE flights DROP COLUMN IF EXISTS driver_paid_amount;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE drivers DROP COLUMN IF EXISTS previous_debt_seeded;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE drivers DROP COLUMN IF EXISTS previous_debt;`)
	if err != nil {
		return err
	}
	return nil
}
