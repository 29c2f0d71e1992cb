package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fleetledger/config"
	"fleetledger/job"
	"fleetledger/ledger"
)

func recomputeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recompute",
		Short:   "recompute derived ledger fields and report drift",
		Long:    `This command rebuilds every derived field from the raw entries, compares against stored values, corrects drift and flags suspected duplicate entries.`,
		Example: `fleetledger recompute --driver 9f1c... --from 2026-01-01 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			driverFlag, _ := cmd.Flags().GetString("driver")
			businessFlag, _ := cmd.Flags().GetString("business")
			recordFlag, _ := cmd.Flags().GetString("record")
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			workers, _ := cmd.Flags().GetInt("workers")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			opts := job.Options{Workers: workers, DryRun: dryRun}
			if driverFlag != "" {
				id, err := uuid.Parse(driverFlag)
				if err != nil {
					return fmt.Errorf("invalid --driver: %w", err)
				}
				opts.DriverID = id
			}
			if businessFlag != "" {
				id, err := uuid.Parse(businessFlag)
				if err != nil {
					return fmt.Errorf("invalid --business: %w", err)
				}
				opts.BusinessID = id
			}
			if recordFlag != "" {
				id, err := uuid.Parse(recordFlag)
				if err != nil {
					return fmt.Errorf("invalid --record: %w", err)
				}
				opts.RecordID = id
			}
			if fromFlag != "" {
				from, err := parseDate(fromFlag)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				opts.From = from
			}
			if toFlag != "" {
				to, err := parseDate(toFlag)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				opts.To = to
			}

			config.LoadEnv()
			logger := config.SetupLogger(false)

			store, cleanup, err := buildStore(false)
			if err != nil {
				log.Fatalf("Failed to open storage: %v", err)
			}
			defer cleanup()

			rec := job.NewRecomputer(store, ledger.NewConverter(config.Rates()), nil, logger)
			report, err := rec.Run(context.Background(), opts)
			if err != nil {
				return err
			}

			fmt.Printf("processed %d trips, %d flights in %s\n",
				report.ProcessedTrips, report.ProcessedFlights, report.Elapsed)
			fmt.Printf("drifted: %d, failed: %d, warnings: %d\n",
				report.Drifted, report.Failed, report.Warnings)
			for _, d := range report.Drifts {
				fmt.Printf("  %s %s %s: %s -> %s\n", d.Kind, d.RecordID, d.Field, d.From, d.To)
			}
			if len(report.Duplicates) > 0 {
				fmt.Printf("suspected duplicates:\n")
				for _, g := range report.Duplicates {
					fmt.Printf("  %s x%d [%s]\n", g.Kind, g.Count, g.Key)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("driver", "", "limit the sweep to one driver id")
	cmd.Flags().String("business", "", "limit the sweep to one business id")
	cmd.Flags().String("record", "", "limit the sweep to one trip or flight id")
	cmd.Flags().String("from", "", "only records created on or after this date (2006-01-02 or RFC3339)")
	cmd.Flags().String("to", "", "only records created before this date (2006-01-02 or RFC3339)")
	cmd.Flags().Int("workers", 0, "number of concurrent workers (0 = default)")
	cmd.Flags().Bool("dry-run", false, "report drift without writing corrections")

	return cmd
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
