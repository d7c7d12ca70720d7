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
	"github.com/sda-platform/dronebridge/pkg/samplelog"
)

var (
	relayLogCmd = &cobra.Command{
		Use:   "log",
		Short: "Append the relayed position to the sample log",
		Long:  relayLogCmdLongDocs,
		Run:   relayLogCmdRun,
	}

	relayLogCmdLongDocs = `Log connects to the relay endpoint and appends one line per
sample to the log file, and optionally one row to a SQLite database.
Connection problems are retried forever.`
)

func init() {
	relayCmd.AddCommand(relayLogCmd)
	relayLogCmd.Flags().String("endpoint", "", "Relay endpoint URL")
	relayLogCmd.Flags().String("file", "", "Sample log file")
	relayLogCmd.Flags().String("sqlite", "", "Optional SQLite database for samples")
}

func relayLogCmdRun(c *cobra.Command, args []string) {
	initLogger("historian")

	cfg, err := config.Load(cfgFile, c.Flags())
	if err != nil {
		appLogger.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}
	hc := cfg.Historian

	var sink samplelog.Sink = samplelog.NewFileSink(hc.File)
	if hc.SQLite != "" {
		db, err := samplelog.OpenSQLite(hc.SQLite)
		if err != nil {
			appLogger.Error("Could not open sample database", "error", err)
			os.Exit(1)
		}
		sink = samplelog.MultiSink{sink, db}
	}
	defer sink.Close()

	ep, stopSource, err := openSource(hc.Endpoint, cfg)
	if err != nil {
		appLogger.Error("Could not open endpoint", "endpoint", hc.Endpoint, "error", err)
		os.Exit(1)
	}
	defer stopSource()

	m := metrics.New(metrics.WithLogger(appLogger))
	lg := samplelog.New(ep, sink,
		samplelog.WithLogger(appLogger),
		samplelog.WithLayout(cfg.Relay.Endpoint()),
		samplelog.WithPeriod(hc.Period),
		samplelog.WithRetryDelay(hc.RetryDelay),
		samplelog.WithMetrics(m),
	)
	serveMetrics(hc.MetricsBind, m.BuiltinWebserver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go lg.Run()

	<-quit
	appLogger.Info("Shutting down...")
	lg.Stop()
	<-lg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)
}
