package bridge

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
)

// Option configures the SyncLoop.
type Option func(*SyncLoop)

// WithLogger sets the logger for the loop.
func WithLogger(l hclog.Logger) Option {
	return func(s *SyncLoop) { s.l = l.Named("sync") }
}

// WithTags overrides the default tag names.
func WithTags(t TagMap) Option {
	return func(s *SyncLoop) { s.tags = t }
}

// WithPeriod sets the cycle period.
func WithPeriod(d time.Duration) Option {
	return func(s *SyncLoop) { s.period = d }
}

// WithRetryDelay sets the wait between connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *SyncLoop) { s.retryDelay = d }
}

// WithStaleAfter sets how long the position may go without an update
// before it is flagged as stale.
func WithStaleAfter(d time.Duration) Option {
	return func(s *SyncLoop) { s.staleAfter = d }
}

// WithMetrics reports into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SyncLoop) { s.m = m }
}

// WithEventStream publishes position updates and link changes.
func WithEventStream(es eventstream.Publisher) Option {
	return func(s *SyncLoop) { s.es = es }
}
