// Package samplelog periodically reads the relayed position from the
// hosted endpoint and appends it to durable storage.
package samplelog

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/linkloop"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/relay"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
)

const loopName = "samplelog"

// Sample is one timestamped position reading.
type Sample struct {
	Time     time.Time
	Position state.Vec3
}

// Logger samples the endpoint into a Sink.
type Logger struct {
	l    hclog.Logger
	sink Sink
	now  func() time.Time

	layout     relay.Endpoint
	period     time.Duration
	retryDelay time.Duration

	m  *metrics.Metrics
	lp *linkloop.Loop
}

// New returns a logger reading through d and writing to sink.
func New(d taglink.Dialer, sink Sink, opts ...Option) *Logger {
	lg := &Logger{
		l:          hclog.NewNullLogger(),
		sink:       sink,
		now:        time.Now,
		layout:     relay.DefaultEndpoint(),
		period:     time.Second * 5,
		retryDelay: linkloop.DefaultRetryDelay,
	}
	for _, o := range opts {
		o(lg)
	}
	if lg.m == nil {
		lg.m = metrics.New()
	}

	lg.lp = linkloop.New(loopName, d, lg.bind, lg.cycle,
		linkloop.WithLogger(lg.l),
		linkloop.WithPeriod(lg.period),
		linkloop.WithRetryDelay(lg.retryDelay),
		linkloop.WithMetrics(lg.m),
	)
	return lg
}

// Run blocks until Stop.
func (lg *Logger) Run() {
	lg.lp.Run()
}

// Stop ends the loop at its next wait.
func (lg *Logger) Stop() {
	lg.lp.Stop()
}

// Done is closed once Run has returned.
func (lg *Logger) Done() <-chan struct{} {
	return lg.lp.Done()
}

// State reports the link state to the endpoint.
func (lg *Logger) State() taglink.LinkState {
	return lg.lp.State()
}

func (lg *Logger) bind(ctx context.Context, sess taglink.Session) (taglink.Binding, error) {
	return taglink.BindExact(ctx, sess, taglink.BindSpec{
		Namespace: lg.layout.Namespace,
		Container: lg.layout.Object,
		Tags:      lg.layout.Variables[:],
	})
}

func (lg *Logger) cycle(ctx context.Context, b taglink.Binding) error {
	v, err := b.ReadAll(ctx, lg.layout.Variables[:]...)
	if err != nil {
		return err
	}
	s := Sample{Time: lg.now(), Position: state.Vec3{X: v[0], Y: v[1], Z: v[2]}}

	// A storage failure drops the sample but keeps the session.
	if err := lg.sink.Append(s); err != nil {
		lg.l.Error("Sample dropped", "error", err)
		lg.m.SampleDropped()
		return nil
	}
	lg.m.SampleWritten()
	lg.l.Debug("Sample stored", "position", s.Position)
	return nil
}
