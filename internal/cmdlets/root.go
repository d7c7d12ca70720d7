// Package cmdlets contains the main entrypoints of the various
// functions that the dronebridge tool can perform.
package cmdlets

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "dronebridge",
		Short: "Entrypoint for all dronebridge commands",
		Long:  rootCmdLongDocs,
	}
	rootCmdLongDocs = `dronebridge connects a drone's tag server to the rest of the
plant.  The gateway mirrors the drone's position and accepts new
setpoints over a small TCP command channel, the relay republishes the
position on a hosted tag endpoint, and the historian logs what the
relay publishes.`

	cfgFile string

	appLogger = hclog.NewNullLogger()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML configuration file")
}

// Entrypoint is the entrypoint into all cmdlets, it will dispatch to
// the right one.
func Entrypoint() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func initLogger(name string) {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	appLogger = hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(ll),
	})
	appLogger.Info("Log level", "level", appLogger.GetLevel())
}
