package samplelog

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/relay"
)

// Option configures the Logger.
type Option func(*Logger)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(lg *Logger) { lg.l = l.Named("samplelog") }
}

// WithLayout sets the namespace, object and variable names to read.
func WithLayout(s relay.Endpoint) Option {
	return func(lg *Logger) { lg.layout = s }
}

// WithPeriod sets the sampling cadence.
func WithPeriod(d time.Duration) Option {
	return func(lg *Logger) { lg.period = d }
}

// WithRetryDelay sets the wait between connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(lg *Logger) { lg.retryDelay = d }
}

// WithClock replaces the time source used to stamp samples.
func WithClock(now func() time.Time) Option {
	return func(lg *Logger) { lg.now = now }
}

// WithMetrics reports into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(lg *Logger) { lg.m = m }
}
