package cmdlets

import (
	"github.com/spf13/cobra"
)

var (
	gatewayCmd = &cobra.Command{
		Use:   "gateway",
		Short: "Run or talk to the drone gateway",
		Long:  gatewayCmdLongDocs,
	}

	gatewayCmdLongDocs = `The gateway keeps a copy of the drone's position in step with the
drone's tag server and accepts new setpoints on the command channel.`
)

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
