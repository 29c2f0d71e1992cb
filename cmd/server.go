package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"fleetledger/config"
	"fleetledger/ledger"
	"fleetledger/web"
)

func serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `This command starts the HTTP boundary of the ledger.`,
		Run: func(cmd *cobra.Command, args []string) {
			isDev, _ := cmd.Flags().GetBool("dev")
			port, _ := cmd.Flags().GetString("port")
			mqMode, _ := cmd.Flags().GetString("mq")
			useMem, _ := cmd.Flags().GetBool("mem")

			config.LoadEnv()
			logger := config.SetupLogger(isDev)

			store, cleanup, err := buildStore(useMem)
			if err != nil {
				log.Fatalf("Failed to open storage: %v", err)
			}
			defer cleanup()

			queues, err := buildQueues(context.Background(), mqMode)
			if err != nil {
				log.Fatalf("Failed to set up message queues: %v", err)
			}

			if err := web.Serve(web.ServiceConfig{
				IsDev:  isDev,
				Port:   port,
				Store:  store,
				Conv:   ledger.NewConverter(config.Rates()),
				Queues: queues,
				Log:    logger,
			}); err != nil {
				log.Fatalf("Server stopped: %v", err)
			}
		},
	}

	cmd.Flags().Bool("dev", true, "Run in development mode")
	cmd.Flags().String("port", "8080", "Port to run the web server on")
	cmd.Flags().String("mq", "go_chan", "Message queue mode (go_chan, rabbitmq, gcp_pub_sub, none)")
	cmd.Flags().Bool("mem", false, "Use the in-memory store instead of postgres")

	return cmd
}
