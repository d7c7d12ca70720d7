package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
)

type drone struct {
	dir     *memory.Directory
	sensors [3]*memory.Tag
	targets [3]*memory.Tag
}

func newDrone(pos state.Vec3) *drone {
	d := &drone{dir: memory.New()}
	c := d.dir.AddContainer("3", "Drone")
	d.sensors = [3]*memory.Tag{c.AddTag("DroneX", pos.X), c.AddTag("DroneY", pos.Y), c.AddTag("DroneZ", pos.Z)}
	d.targets = [3]*memory.Tag{c.AddTag("TargetX", 0), c.AddTag("TargetY", 0), c.AddTag("TargetZ", 0)}
	return d
}

func (d *drone) target() state.Vec3 {
	return state.Vec3{X: d.targets[0].Value(), Y: d.targets[1].Value(), Z: d.targets[2].Value()}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func start(t *testing.T, d *drone, st *state.State, opts ...Option) *SyncLoop {
	opts = append([]Option{WithPeriod(2 * time.Millisecond), WithRetryDelay(20 * time.Millisecond)}, opts...)
	s := New(d.dir, st, opts...)
	go s.Run()
	t.Cleanup(func() {
		s.Stop()
		<-s.Done()
	})
	return s
}

func TestSyncRoundTrip(t *testing.T) {
	d := newDrone(state.Vec3{X: 3.0, Y: -1.0, Z: 0.8})
	st := state.New(state.Vec3{X: 0, Y: 0, Z: 1})
	s := start(t, d, st)

	waitFor(t, func() bool { return st.Position() == state.Vec3{X: 3.0, Y: -1.0, Z: 0.8} })
	waitFor(t, func() bool { return d.target() == state.Vec3{X: 0, Y: 0, Z: 1} })
	assert.Equal(t, taglink.Connected, s.State())

	st.SetSetpoint(state.Vec3{X: 1.5, Y: 2, Z: 1})
	waitFor(t, func() bool { return d.target() == state.Vec3{X: 1.5, Y: 2, Z: 1} })

	d.sensors[0].Set(1.25)
	waitFor(t, func() bool { return st.Position().X == 1.25 })
}

func TestSyncPartialReadNotCommitted(t *testing.T) {
	d := newDrone(state.Vec3{X: 1, Y: 2, Z: 3})
	st := state.New(state.Vec3{})
	d.sensors[2].FailReads(1000)

	start(t, d, st)
	waitFor(t, func() bool { return d.dir.Dials() >= 2 })

	assert.Equal(t, state.Vec3{}, st.Position())
	assert.Zero(t, d.targets[0].Writes())
}

func TestSyncReconnectsAfterOutage(t *testing.T) {
	d := newDrone(state.Vec3{X: 1, Y: 1, Z: 1})
	st := state.New(state.Vec3{})
	s := start(t, d, st)

	waitFor(t, func() bool { return s.State() == taglink.Connected })
	d.dir.SetDown(true)
	waitFor(t, func() bool { return s.State() == taglink.Disconnected })

	d.sensors[1].Set(7)
	d.dir.SetDown(false)
	waitFor(t, func() bool { return s.State() == taglink.Connected && st.Position().Y == 7 })

	times := d.dir.DialTimes()
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), 20*time.Millisecond)
	}
}

func TestSyncMissingTagsRetries(t *testing.T) {
	dir := memory.New()
	c := dir.AddContainer("3", "Drone")
	c.AddTag("DroneX", 0)
	st := state.New(state.Vec3{})

	s := New(dir, st, WithPeriod(time.Millisecond), WithRetryDelay(5*time.Millisecond))
	go s.Run()
	waitFor(t, func() bool { return dir.Dials() >= 2 })
	s.Stop()
	<-s.Done()

	assert.Equal(t, taglink.Disconnected, s.State())
}

func TestSyncCustomTags(t *testing.T) {
	dir := memory.New()
	c := dir.AddContainer("1", "UAV")
	for _, n := range []string{"px", "py", "pz"} {
		c.AddTag(n, 4)
	}
	tx := c.AddTag("tx", 0)
	c.AddTag("ty", 0)
	c.AddTag("tz", 0)
	st := state.New(state.Vec3{X: 9})

	tags := TagMap{
		Namespace: "1",
		Container: "uav",
		Sensors:   [3]string{"px", "py", "pz"},
		Targets:   [3]string{"tx", "ty", "tz"},
	}
	s := New(dir, st, WithTags(tags), WithPeriod(time.Millisecond))
	go s.Run()
	defer func() { s.Stop(); <-s.Done() }()

	waitFor(t, func() bool { return tx.Value() == 9 && st.Position() == state.Vec3{X: 4, Y: 4, Z: 4} })
}

func TestSyncStaleFlag(t *testing.T) {
	d := newDrone(state.Vec3{})
	st := state.New(state.Vec3{})
	s := start(t, d, st, WithStaleAfter(30*time.Millisecond), WithMetrics(metrics.New()))

	waitFor(t, func() bool { return s.State() == taglink.Connected })
	assert.False(t, s.Stale())

	d.dir.SetDown(true)
	waitFor(t, s.Stale)

	d.dir.SetDown(false)
	waitFor(t, func() bool { return !s.Stale() })
}
