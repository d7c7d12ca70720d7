package cmdlets

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sda-platform/dronebridge/pkg/bridge"
	"github.com/sda-platform/dronebridge/pkg/cmdserver"
	"github.com/sda-platform/dronebridge/pkg/config"
	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/http"
	"github.com/sda-platform/dronebridge/pkg/mdns"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
)

var (
	gatewayRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the sync loop and command channel",
		Long:  gatewayRunCmdLongDocs,
		Run:   gatewayRunCmdRun,
	}

	gatewayRunCmdLongDocs = `Run starts the sync loop against the drone's tag server and
opens the command channel.  If the command channel cannot be bound
the gateway exits immediately with a non-zero status.  The status
server exposes /api/state, /api/stream and /metrics.`
)

func init() {
	gatewayCmd.AddCommand(gatewayRunCmd)
	gatewayRunCmd.Flags().String("source", "", "Tag source URL (opc.tcp://, mqtt://, mem://)")
	gatewayRunCmd.Flags().String("command-bind", "", "Command channel listen address")
	gatewayRunCmd.Flags().String("status-bind", "", "Status HTTP listen address, empty to disable")
	gatewayRunCmd.Flags().Bool("advertise", false, "Advertise the command channel over mDNS")
}

func gatewayRunCmdRun(c *cobra.Command, args []string) {
	initLogger("gateway")

	cfg, err := config.Load(cfgFile, c.Flags())
	if err != nil {
		appLogger.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}
	gc := cfg.Gateway

	src, stopSource, err := openSource(gc.Source, cfg)
	if err != nil {
		appLogger.Error("Could not open tag source", "source", gc.Source, "error", err)
		os.Exit(1)
	}
	defer stopSource()

	m := metrics.New(metrics.WithLogger(appLogger))
	es := eventstream.New(appLogger)
	st := state.New(gc.DefaultSetpoint)
	m.Setpoint(gc.DefaultSetpoint)

	cs := cmdserver.New(st,
		cmdserver.WithLogger(appLogger),
		cmdserver.WithReadTimeout(gc.ReadTimeout),
		cmdserver.WithMetrics(m),
		cmdserver.WithEventStream(es),
	)
	if err := cs.Listen(gc.CommandBind); err != nil {
		appLogger.Error("Could not bind command channel", "bind", gc.CommandBind, "error", err)
		os.Exit(1)
	}

	sl := bridge.New(src, st,
		bridge.WithLogger(appLogger),
		bridge.WithTags(gc.TagMap()),
		bridge.WithPeriod(gc.Period),
		bridge.WithRetryDelay(gc.RetryDelay),
		bridge.WithStaleAfter(gc.StaleAfter),
		bridge.WithMetrics(m),
		bridge.WithEventStream(es),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var w *http.Server
	if gc.StatusBind != "" {
		w, err = http.NewServer(
			http.WithLogger(appLogger),
			http.WithPrometheusRegistry(m.Registry()),
			http.WithState(st),
			http.WithLink(sl),
			http.WithEventStream(es),
		)
		if err != nil {
			appLogger.Error("Error during webserver initialization", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := w.Serve(gc.StatusBind); err != nil {
				appLogger.Error("Error initializing", "error", err)
				quit <- syscall.SIGINT
			}
		}()
	}

	if gc.Advertise {
		port, err := mdns.ParseBind(gc.CommandBind)
		if err != nil {
			appLogger.Error("Cannot advertise command channel", "error", err)
		} else if srv, err := mdns.NewServer(mdns.Announcement{Instance: "dronebridge", Port: port}); err != nil {
			appLogger.Warn("mDNS advertisement unavailable", "error", err)
		} else {
			defer srv.Shutdown()
		}
	}

	go sl.Run()
	go func() {
		if err := cs.Serve(); err != nil {
			appLogger.Error("Command channel failed", "error", err)
			quit <- syscall.SIGINT
		}
	}()

	<-quit
	appLogger.Info("Shutting down...")
	if err := cs.Shutdown(); err != nil {
		appLogger.Error("Error closing command channel", "error", err)
	}
	sl.Stop()
	<-sl.Done()
	if w != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.Shutdown(ctx); err != nil {
			appLogger.Error("Error during shutdown", "error", err)
			os.Exit(2)
		}
	}
}
