package cmdserver

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
)

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l hclog.Logger) Option {
	return func(s *Server) { s.l = l.Named("cmdserver") }
}

// WithReadTimeout bounds how long a connected client has to send its
// request.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithMetrics counts requests by outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.m = m }
}

// WithEventStream publishes accepted setpoints.
func WithEventStream(es eventstream.Publisher) Option {
	return func(s *Server) { s.es = es }
}
