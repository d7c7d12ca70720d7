package cmdlets

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sda-platform/dronebridge/pkg/config"
	"github.com/sda-platform/dronebridge/pkg/sim"
	"github.com/sda-platform/dronebridge/pkg/tagserver"
)

var (
	simCmd = &cobra.Command{
		Use:   "sim",
		Short: "Host a simulated drone",
		Long:  simCmdLongDocs,
		Run:   simCmdRun,
	}

	simCmdLongDocs = `Sim hosts a simulated drone on a tag endpoint.  The drone
publishes DroneX, DroneY and DroneZ and flies toward whatever is
written to TargetX, TargetY and TargetZ.  Point the gateway at it with
--source mqtt://<sim-bind>.`
)

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().String("sim-bind", "", "Endpoint listen address")
	simCmd.Flags().Float64("speed", 0, "Travel speed in meters per second")
}

func simCmdRun(c *cobra.Command, args []string) {
	initLogger("sim")

	cfg, err := config.Load(cfgFile, c.Flags())
	if err != nil {
		appLogger.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}
	sc := cfg.Sim

	srv, err := tagserver.NewServer(tagserver.WithLogger(appLogger))
	if err != nil {
		appLogger.Error("Could not create endpoint", "error", err)
		os.Exit(1)
	}

	d := sim.New(sc.Start,
		sim.WithLogger(appLogger),
		sim.WithSpeed(sc.Speed),
		sim.WithPeriod(sc.Period),
		sim.WithTags(cfg.Gateway.TagMap()),
	)
	if err := d.HostOn(srv); err != nil {
		appLogger.Error("Could not register drone", "error", err)
		os.Exit(1)
	}
	if err := srv.Serve(sc.Bind); err != nil {
		appLogger.Error("Could not bind endpoint", "bind", sc.Bind, "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go d.Run()

	<-quit
	appLogger.Info("Shutting down...")
	d.Stop()
	if err := srv.Shutdown(); err != nil {
		appLogger.Error("Error during shutdown", "error", err)
		os.Exit(2)
	}
}
