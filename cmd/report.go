package cmd

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fleetledger/config"
	"fleetledger/db/db"
	"fleetledger/ledger"
)

var reportBusinessID string
var reportOutputPath string
var reportStatus string

func reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "export the driver-debts report as CSV",
		Long:    `This command reconciles every driver of a business and writes one CSV row per completed flight, with per-driver totals.`,
		Example: `fleetledger report --business 3c9a... --output debts.csv --status pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			businessID, err := uuid.Parse(reportBusinessID)
			if err != nil {
				return fmt.Errorf("invalid --business: %w", err)
			}
			filter := ledger.DebtStatusFilter(reportStatus)
			switch filter {
			case ledger.FilterAll, ledger.FilterPending, ledger.FilterPaid:
			default:
				return fmt.Errorf("invalid --status %q (pending, paid or empty)", reportStatus)
			}

			config.LoadEnv()

			store, cleanup, err := buildStore(false)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer cleanup()

			drivers, err := store.ListDrivers(businessID)
			if err != nil {
				return fmt.Errorf("failed to list drivers: %w", err)
			}
			if len(drivers) == 0 {
				return fmt.Errorf("no drivers found for business %s", businessID)
			}

			outputFile, err := os.Create(reportOutputPath)
			if err != nil {
				return err
			}
			defer func(outputFile *os.File) {
				err := outputFile.Close()
				if err != nil {
					log.Fatalf("Failed to close output file: %v", err)
				}
			}(outputFile)

			writer := csv.NewWriter(outputFile)
			defer writer.Flush()

			header := []string{"driver_id", "driver_name", "flight_id", "driver_owes", "paid", "remaining"}
			if err := writer.Write(header); err != nil {
				return err
			}

			for i := range drivers {
				if err := writeDriverRows(writer, store, &drivers[i], filter); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportBusinessID, "business", "b", "", "business id (required)")
	err := cmd.MarkFlagRequired("business")
	if err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&reportOutputPath, "output", "o", "", "csv output file path (required)")
	err = cmd.MarkFlagRequired("output")
	if err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&reportStatus, "status", "s", "", "filter rows: pending, paid or empty for all")

	return cmd
}

// writeDriverRows appends one row per reported flight and a totals row
// for the driver.
func writeDriverRows(writer *csv.Writer, store db.FleetDBWrapper, driver *db.Driver, filter ledger.DebtStatusFilter) error {
	flights, err := store.ListFlights(db.RecordFilter{BusinessID: driver.BusinessID, DriverID: driver.ID})
	if err != nil {
		return fmt.Errorf("failed to list flights for driver %s: %w", driver.ID, err)
	}

	report := ledger.BuildDebtReport(flights, driver.PreviousDebt, filter)
	for _, row := range report.Rows {
		record := []string{
			driver.ID.String(),
			driver.Name,
			row.FlightID.String(),
			formatMoney(row.DriverOwes),
			formatMoney(row.DriverPaidAmount),
			formatMoney(row.Remaining),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	totals := []string{
		driver.ID.String(),
		driver.Name,
		"TOTAL",
		formatMoney(report.TotalDebt),
		formatMoney(report.PaidAmount),
		strconv.Itoa(report.PendingCount) + " pending / " + strconv.Itoa(report.PaidCount) + " paid",
	}
	return writer.Write(totals)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
