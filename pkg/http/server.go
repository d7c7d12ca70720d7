// Package http serves the gateway's status surface: a JSON snapshot
// of the shared state, the Prometheus metrics and a websocket stream
// of live events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// Snapshotter provides a consistent copy of position and setpoint.
type Snapshotter interface {
	Snapshot() (position, setpoint state.Vec3)
}

// LinkReporter describes the health of the upstream link.
type LinkReporter interface {
	State() taglink.LinkState
	Stale() bool
}

// Status is the body of /api/state.
type Status struct {
	Position state.Vec3
	Setpoint state.Vec3
	Link     string `json:",omitempty"`
	Stale    bool
}

// Server manages the HTTP serving components
type Server struct {
	r    chi.Router
	n    *http.Server
	l    hclog.Logger
	reg  *prometheus.Registry
	st   Snapshotter
	link LinkReporter
	es   *eventstream.EventStream
}

// NewServer returns a configured status server.
func NewServer(opts ...Option) (*Server, error) {
	x := new(Server)
	x.r = chi.NewRouter()
	x.n = &http.Server{}
	x.l = hclog.NewNullLogger()

	for _, o := range opts {
		if err := o(x); err != nil {
			return nil, err
		}
	}
	if x.st == nil {
		return nil, errors.New("http: a state source is required")
	}

	if x.reg != nil {
		x.r.Handle("/metrics", promhttp.HandlerFor(x.reg, promhttp.HandlerOpts{Registry: x.reg}))
	}
	x.r.Get("/api/state", x.currentState)
	if x.es != nil {
		x.r.Get("/api/stream", x.es.Handler)
	}

	return x, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Serve binds and serves http on the bound socket.  An error will be
// returned if the server cannot initialize.
func (s *Server) Serve(bind string) error {
	s.l.Info("HTTP is starting", "bind", bind)
	s.n.Addr = bind
	s.n.Handler = s.r
	if err := s.n.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.l.Info("Stopping...")
	return s.n.Shutdown(ctx)
}

func (s *Server) currentState(w http.ResponseWriter, r *http.Request) {
	pos, sp := s.st.Snapshot()
	st := Status{Position: pos, Setpoint: sp}
	if s.link != nil {
		st.Link = s.link.State().String()
		st.Stale = s.link.Stale()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.l.Warn("Error encoding state", "error", err)
	}
}
