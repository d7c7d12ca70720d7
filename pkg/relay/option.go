package relay

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
)

// Option configures the Relay.
type Option func(*Relay)

// WithLogger sets the logger for the relay and its endpoint.
func WithLogger(l hclog.Logger) Option {
	return func(r *Relay) { r.l = l.Named("relay") }
}

// WithBind sets the address the hosted endpoint listens on.
func WithBind(addr string) Option {
	return func(r *Relay) { r.bind = addr }
}

// WithSource overrides where the sensor values are read upstream.
func WithSource(s Source) Option {
	return func(r *Relay) { r.src = s }
}

// WithEndpoint overrides the layout of the hosted endpoint.
func WithEndpoint(s Endpoint) Option {
	return func(r *Relay) { r.ep = s }
}

// WithPeriod sets the relay cadence.
func WithPeriod(d time.Duration) Option {
	return func(r *Relay) { r.period = d }
}

// WithRetryDelay sets the wait between upstream connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Relay) { r.retryDelay = d }
}

// WithMetrics reports into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.m = m }
}

// WithEventStream publishes link changes.
func WithEventStream(es eventstream.Publisher) Option {
	return func(r *Relay) { r.es = es }
}
