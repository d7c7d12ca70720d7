package http

import (
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
)

// Option enables variadic option passing to the server on startup.
type Option func(*Server) error

// WithPrometheusRegistry sets the Prometheus registry for the server
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) error {
		s.reg = reg
		return nil
	}
}

// WithLogger sets the logger for the server.
func WithLogger(l hclog.Logger) Option {
	return func(s *Server) error {
		s.l = l.Named("web")
		return nil
	}
}

// WithState sets where the position and setpoint are read from.
func WithState(st Snapshotter) Option {
	return func(s *Server) error {
		s.st = st
		return nil
	}
}

// WithLink sets the loop whose link status is reported.
func WithLink(lr LinkReporter) Option {
	return func(s *Server) error {
		s.link = lr
		return nil
	}
}

// WithEventStream mounts the live event stream.
func WithEventStream(es *eventstream.EventStream) Option {
	return func(s *Server) error {
		s.es = es
		return nil
	}
}
