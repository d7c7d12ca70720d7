package linkloop

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.  Owners pass their already named
// logger through unchanged.
func WithLogger(l hclog.Logger) Option {
	return func(lp *Loop) { lp.l = l }
}

// WithPeriod sets the time between cycles while connected.
func WithPeriod(d time.Duration) Option {
	return func(lp *Loop) { lp.period = d }
}

// WithRetryDelay sets the fixed wait after any failure before the
// next connection attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(lp *Loop) { lp.retry = backoff.NewConstantBackOff(d) }
}

// WithBackOff replaces the retry policy.  The policy is reset each
// time the loop connects, and the loop exits if it returns
// backoff.Stop.
func WithBackOff(b backoff.BackOff) Option {
	return func(lp *Loop) { lp.retry = b }
}

// WithMetrics reports link state and failures into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(lp *Loop) { lp.m = m }
}

// WithEventStream publishes link changes and failures into es.
func WithEventStream(es eventstream.Publisher) Option {
	return func(lp *Loop) { lp.es = es }
}
