package cmdlets

import (
	"github.com/spf13/cobra"
)

var (
	relayCmd = &cobra.Command{
		Use:   "relay",
		Short: "Republish and log the drone's position",
		Long:  relayCmdLongDocs,
	}

	relayCmdLongDocs = `The relay copies the drone's sensor values onto a hosted tag
endpoint.  The historian reads that endpoint and appends a sample to
its log every few seconds.`
)

func init() {
	rootCmd.AddCommand(relayCmd)
}

func serveMetrics(bind string, start func(string) error) {
	if bind == "" {
		return
	}
	go func() {
		if err := start(bind); err != nil {
			appLogger.Warn("Metrics server stopped", "error", err)
		}
	}()
}
