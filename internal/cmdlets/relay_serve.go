package cmdlets

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sda-platform/dronebridge/pkg/config"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/relay"
)

var (
	relayServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Host the relay endpoint and feed it from upstream",
		Long:  relayServeCmdLongDocs,
		Run:   relayServeCmdRun,
	}

	relayServeCmdLongDocs = `Serve binds the hosted tag endpoint first and only then starts
reading the drone's sensors upstream.  If the endpoint cannot be bound
the relay exits immediately with a non-zero status.`
)

func init() {
	relayCmd.AddCommand(relayServeCmd)
	relayServeCmd.Flags().String("upstream", "", "Upstream tag source URL")
	relayServeCmd.Flags().String("relay-bind", "", "Hosted endpoint listen address")
}

func relayServeCmdRun(c *cobra.Command, args []string) {
	initLogger("relay")

	cfg, err := config.Load(cfgFile, c.Flags())
	if err != nil {
		appLogger.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}
	rc := cfg.Relay

	up, stopSource, err := openSource(rc.Upstream, cfg)
	if err != nil {
		appLogger.Error("Could not open upstream", "upstream", rc.Upstream, "error", err)
		os.Exit(1)
	}
	defer stopSource()

	m := metrics.New(metrics.WithLogger(appLogger))
	r, err := relay.New(up,
		relay.WithLogger(appLogger),
		relay.WithBind(rc.Bind),
		relay.WithSource(rc.Source()),
		relay.WithEndpoint(rc.Endpoint()),
		relay.WithPeriod(rc.Period),
		relay.WithRetryDelay(rc.RetryDelay),
		relay.WithMetrics(m),
	)
	if err != nil {
		appLogger.Error("Could not create relay", "error", err)
		os.Exit(1)
	}
	if err := r.Start(); err != nil {
		appLogger.Error("Could not bind relay endpoint", "bind", rc.Bind, "error", err)
		os.Exit(1)
	}
	serveMetrics(rc.MetricsBind, m.BuiltinWebserver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go r.Run()

	<-quit
	appLogger.Info("Shutting down...")
	if err := r.Stop(); err != nil {
		appLogger.Error("Error during shutdown", "error", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)
}
