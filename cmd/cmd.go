package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fleetledger/db/db"
	"fleetledger/db/mem"
	"fleetledger/db/pg"
	"fleetledger/mq/gcppubsub"
	"fleetledger/mq/goch"
	"fleetledger/mq/mq"
	"fleetledger/mq/rabbit"
)

var RootCmd = &cobra.Command{
	Use:   "fleetledger",
	Short: "trucking fleet financial ledger",
	Long:  `fleetledger keeps the money ledger of a trucking fleet: trips, multi-leg flights, currency-converted expenses and the reconciled debt of every driver.`,
}

func init() {
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
	RootCmd.AddCommand(recomputeCommand())
	RootCmd.AddCommand(reportCommand())
}

// buildStore opens the configured storage backend and returns it with
// its cleanup function.
func buildStore(useMem bool) (db.FleetDBWrapper, func(), error) {
	if useMem {
		return mem.NewInMemoryFleetDBWrapper(), func() {}, nil
	}

	gdb, err := pg.InitPostgresGORM(pg.CreateDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	return pg.NewGORMFleetDBWrapper(gdb), func() { pg.CloseGORM(gdb) }, nil
}

// buildQueues wires the requested message queue backend; "none"
// disables event publication entirely.
func buildQueues(ctx context.Context, mode string) (mq.LedgerMessageQueueWrapper, error) {
	switch mode {
	case "none":
		return nil, nil
	case "go_chan":
		return goch.NewGoChanLedgerMessageQueueWrapper(), nil
	case "rabbitmq":
		conn := rabbit.NewRabbitConnection(rabbit.CreateAmqpURL())
		return rabbit.NewRabbitLedgerMessageQueueWrapper(conn)
	case "gcp_pub_sub":
		return gcppubsub.NewGCPLedgerMessageQueueWrapper(ctx, gcppubsub.GetGCPProjectID())
	default:
		return nil, fmt.Errorf("unknown mq mode %q (go_chan, rabbitmq, gcp_pub_sub, none)", mode)
	}
}
