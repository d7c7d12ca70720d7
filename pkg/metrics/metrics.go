package metrics

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// New returns an initialized instance of the metrics system.
func New(opts ...Option) *Metrics {
	x := &Metrics{
		l: hclog.NewNullLogger(),
		r: prometheus.NewRegistry(),

		linkState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dronebridge",
			Subsystem: "link",
			Name:      "connected",
			Help:      "1 while the loop holds a bound session to its tag endpoint.",
		}, []string{"loop"}),

		linkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dronebridge",
			Subsystem: "link",
			Name:      "failures_total",
			Help:      "Session failures by loop and error class.",
		}, []string{"loop", "kind"}),

		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dronebridge",
			Subsystem: "link",
			Name:      "cycles_total",
			Help:      "Completed read/write cycles.",
		}, []string{"loop"}),

		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dronebridge",
			Subsystem: "drone",
			Name:      "position_meters",
			Help:      "Last committed drone position.",
		}, []string{"axis"}),

		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dronebridge",
			Subsystem: "drone",
			Name:      "setpoint_meters",
			Help:      "Current commanded setpoint.",
		}, []string{"axis"}),

		positionStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dronebridge",
			Subsystem: "drone",
			Name:      "position_stale",
			Help:      "1 when no position has been committed recently.",
		}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dronebridge",
			Subsystem: "command",
			Name:      "requests_total",
			Help:      "Command channel requests by result.",
		}, []string{"result"}),

		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dronebridge",
			Subsystem: "samples",
			Name:      "total",
			Help:      "Samples handled by the sample logger by result.",
		}, []string{"result"}),

		lastSampleTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dronebridge",
			Subsystem: "samples",
			Name:      "last_written_timestamp",
			Help:      "Time the last sample was persisted.",
		}),
	}

	x.r.MustRegister(x.linkState)
	x.r.MustRegister(x.linkFailures)
	x.r.MustRegister(x.cycles)
	x.r.MustRegister(x.position)
	x.r.MustRegister(x.setpoint)
	x.r.MustRegister(x.positionStale)
	x.r.MustRegister(x.commands)
	x.r.MustRegister(x.samples)
	x.r.MustRegister(x.lastSampleTime)

	x.s = &http.Server{}

	for _, o := range opts {
		o(x)
	}

	return x
}

// BuiltinWebserver runs the metrics webserver for processes that
// don't have a status server of their own.
func (m *Metrics) BuiltinWebserver(bind string) error {
	m.s.Addr = bind
	mux := &http.ServeMux{}
	mux.Handle("/metrics", m.Handler())
	m.s.Handler = mux
	m.l.Info("Metrics listening", "bind", bind)
	return m.s.ListenAndServe()
}

// Shutdown stops the builtin webserver if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.s.Shutdown(ctx)
}

// Registry provides access to the registry that this instance
// manages.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.r
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.r, promhttp.HandlerOpts{Registry: m.r})
}

// LinkState records the connection state of the named loop.
func (m *Metrics) LinkState(loop string, s taglink.LinkState) {
	v := 0.0
	if s == taglink.Connected {
		v = 1
	}
	m.linkState.With(prometheus.Labels{"loop": loop}).Set(v)
}

// LinkFailure counts a torn down or failed session.
func (m *Metrics) LinkFailure(loop string, err error) {
	m.linkFailures.With(prometheus.Labels{"loop": loop, "kind": taglink.Kind(err)}).Inc()
}

// Cycle counts a completed cycle of the named loop.
func (m *Metrics) Cycle(loop string) {
	m.cycles.With(prometheus.Labels{"loop": loop}).Inc()
}

// Position exports the last committed position.
func (m *Metrics) Position(p state.Vec3) {
	exportVec(m.position, p)
}

// Setpoint exports the current setpoint.
func (m *Metrics) Setpoint(sp state.Vec3) {
	exportVec(m.setpoint, sp)
}

// PositionStale flags whether the position has gone stale.
func (m *Metrics) PositionStale(stale bool) {
	m.positionStale.Set(fCast(stale))
}

// Command counts a command channel request by its result.
func (m *Metrics) Command(result string) {
	m.commands.With(prometheus.Labels{"result": result}).Inc()
}

// SampleWritten counts a persisted sample.
func (m *Metrics) SampleWritten() {
	m.samples.With(prometheus.Labels{"result": "written"}).Inc()
	m.lastSampleTime.SetToCurrentTime()
}

// SampleDropped counts a sample that could not be persisted.
func (m *Metrics) SampleDropped() {
	m.samples.With(prometheus.Labels{"result": "dropped"}).Inc()
}

func exportVec(g *prometheus.GaugeVec, v state.Vec3) {
	g.With(prometheus.Labels{"axis": "x"}).Set(v.X)
	g.With(prometheus.Labels{"axis": "y"}).Set(v.Y)
	g.With(prometheus.Labels{"axis": "z"}).Set(v.Z)
}

func fCast(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
