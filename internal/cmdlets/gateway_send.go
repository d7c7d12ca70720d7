package cmdlets

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sda-platform/dronebridge/pkg/client"
	"github.com/sda-platform/dronebridge/pkg/config"
)

var (
	gatewaySendCmd = &cobra.Command{
		Use:   "send <x,y,z>",
		Short: "Send one setpoint to a running gateway",
		Long:  gatewaySendCmdLongDocs,
		Args:  cobra.ExactArgs(1),
		Run:   gatewaySendCmdRun,
	}

	gatewaySendCmdLongDocs = `Send writes a new setpoint to the gateway's command channel and
prints the drone position it answers with.  The setpoint must be three
numbers separated by commas with no spaces, for example 1.5,2.0,1.0.
Every exchange is appended to the transaction log.`
)

func init() {
	gatewayCmd.AddCommand(gatewaySendCmd)
	gatewaySendCmd.Flags().String("address", "", "Command channel address")
	gatewaySendCmd.Flags().String("log-file", "", "Transaction log file")
}

func gatewaySendCmdRun(c *cobra.Command, args []string) {
	initLogger("client")

	cfg, err := config.Load(cfgFile, c.Flags())
	if err != nil {
		appLogger.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}

	cl := client.New(cfg.Client.Address,
		client.WithLogger(appLogger),
		client.WithTimeout(cfg.Client.Timeout),
		client.WithHistorian(client.NewHistorian(cfg.Client.LogFile)),
	)

	resp, err := cl.Send(context.Background(), args[0])
	if err != nil {
		appLogger.Error("Command failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}
