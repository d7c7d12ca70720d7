// Package bridge keeps the shared state in step with the drone's tag
// server.  Every cycle reads the three position sensors and, only if
// all three reads succeed, commits them and pushes the current
// setpoint back out to the target tags.
package bridge

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/linkloop"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/watchdog"
)

const loopName = "sync"

// TagMap names the tags the loop binds on the drone's server.
type TagMap struct {
	Namespace string
	Container string
	Sensors   [3]string
	Targets   [3]string
}

// DefaultTagMap is the layout published by the drone simulator.
func DefaultTagMap() TagMap {
	return TagMap{
		Namespace: "3",
		Container: "Drone",
		Sensors:   [3]string{"DroneX", "DroneY", "DroneZ"},
		Targets:   [3]string{"TargetX", "TargetY", "TargetZ"},
	}
}

func (t TagMap) spec() taglink.BindSpec {
	tags := make([]string, 0, 6)
	tags = append(tags, t.Sensors[:]...)
	tags = append(tags, t.Targets[:]...)
	return taglink.BindSpec{Namespace: t.Namespace, Container: t.Container, Tags: tags}
}

// SyncLoop mirrors the drone's position into the shared state and its
// setpoint out to the drone.
type SyncLoop struct {
	l   hclog.Logger
	st  *state.State
	dog *watchdog.Dog
	lp  *linkloop.Loop

	tags       TagMap
	period     time.Duration
	retryDelay time.Duration
	staleAfter time.Duration

	m  *metrics.Metrics
	es eventstream.Publisher
}

// New wires a SyncLoop to an upstream dialer and the shared state.
func New(d taglink.Dialer, st *state.State, opts ...Option) *SyncLoop {
	s := &SyncLoop{
		l:          hclog.NewNullLogger(),
		st:         st,
		tags:       DefaultTagMap(),
		period:     time.Millisecond * 500,
		retryDelay: linkloop.DefaultRetryDelay,
		staleAfter: time.Second * 5,
		es:         eventstream.NewNullStreamer(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.m == nil {
		s.m = metrics.New()
	}

	s.lp = linkloop.New(loopName, d, s.bind, s.cycle,
		linkloop.WithLogger(s.l),
		linkloop.WithPeriod(s.period),
		linkloop.WithRetryDelay(s.retryDelay),
		linkloop.WithMetrics(s.m),
		linkloop.WithEventStream(s.es),
	)
	s.dog = watchdog.New(
		watchdog.WithName("position"),
		watchdog.WithLogger(s.l),
		watchdog.WithFoodDuration(s.staleAfter),
		watchdog.WithHandFunction(func() { s.m.PositionStale(true) }),
		watchdog.WithCalmFunction(func() { s.m.PositionStale(false) }),
	)
	return s
}

// Run blocks until Stop is called.
func (s *SyncLoop) Run() {
	defer s.dog.Stop()
	s.lp.Run()
}

// Stop ends the loop at its next wait.
func (s *SyncLoop) Stop() {
	s.lp.Stop()
}

// Done is closed once Run has returned.
func (s *SyncLoop) Done() <-chan struct{} {
	return s.lp.Done()
}

// State reports whether the loop currently holds a session.
func (s *SyncLoop) State() taglink.LinkState {
	return s.lp.State()
}

// Stale reports whether the position has gone without an update for
// longer than the stale window.
func (s *SyncLoop) Stale() bool {
	return s.dog.Bitten()
}

func (s *SyncLoop) bind(ctx context.Context, sess taglink.Session) (taglink.Binding, error) {
	return taglink.Bind(ctx, sess, s.tags.spec())
}

func (s *SyncLoop) cycle(ctx context.Context, b taglink.Binding) error {
	v, err := b.ReadAll(ctx, s.tags.Sensors[:]...)
	if err != nil {
		return err
	}
	pos := state.Vec3{X: v[0], Y: v[1], Z: v[2]}
	s.st.SetPosition(pos)
	s.dog.Feed()
	s.m.Position(pos)
	s.es.PublishPosition(pos)

	sp := s.st.Setpoint()
	if err := b.WriteAll(ctx, s.tags.Targets[:], []float64{sp.X, sp.Y, sp.Z}); err != nil {
		return err
	}
	s.m.Setpoint(sp)
	s.l.Trace("Cycle complete", "position", pos, "setpoint", sp)
	return nil
}
