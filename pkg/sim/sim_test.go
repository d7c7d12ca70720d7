package sim

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/bridge"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
	"github.com/sda-platform/dronebridge/pkg/taglink/mqtt"
	"github.com/sda-platform/dronebridge/pkg/tagserver"
)

func TestApproach(t *testing.T) {
	got := approach(state.Vec3{}, state.Vec3{X: 3, Y: 4}, 1)
	assert.InDelta(t, 0.6, got.X, 1e-9)
	assert.InDelta(t, 0.8, got.Y, 1e-9)

	assert.Equal(t, state.Vec3{X: 1}, approach(state.Vec3{}, state.Vec3{X: 1}, 5))
	assert.Equal(t, state.Vec3{Z: 2}, approach(state.Vec3{Z: 2}, state.Vec3{Z: 2}, 0))
}

func TestStepMovesTowardTarget(t *testing.T) {
	ctx := context.Background()
	dir := memory.New()
	d := New(state.Vec3{Z: 1}, WithSpeed(1))
	require.NoError(t, d.HostIn(ctx, dir))

	// Holds still until commanded.
	require.NoError(t, d.Step(ctx, time.Second))
	assert.Equal(t, state.Vec3{Z: 1}, d.Position())

	sess, err := dir.Dial(ctx)
	require.NoError(t, err)
	tags := bridge.DefaultTagMap()
	c, err := sess.Lookup(ctx, tags.Namespace, tags.Container)
	require.NoError(t, err)
	tx, err := c.Tag(ctx, tags.Namespace, "TargetX")
	require.NoError(t, err)
	require.NoError(t, tx.Write(ctx, 2))

	require.NoError(t, d.Step(ctx, time.Second))
	assert.Equal(t, state.Vec3{X: 1, Z: 1}, d.Position())
	require.NoError(t, d.Step(ctx, time.Second))
	assert.Equal(t, state.Vec3{X: 2, Z: 1}, d.Position())

	sx, err := c.Tag(ctx, tags.Namespace, "DroneX")
	require.NoError(t, err)
	v, err := sx.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestSimulatedGateway(t *testing.T) {
	ctx := context.Background()
	dir := memory.New()
	d := New(state.Vec3{Z: 1}, WithSpeed(100), WithPeriod(2*time.Millisecond))
	require.NoError(t, d.HostIn(ctx, dir))
	go d.Run()
	defer d.Stop()

	st := state.New(state.Vec3{Z: 1})
	s := bridge.New(dir, st, bridge.WithPeriod(2*time.Millisecond))
	go s.Run()
	defer func() { s.Stop(); <-s.Done() }()

	st.SetSetpoint(state.Vec3{X: 3, Y: -1, Z: 0.8})
	require.Eventually(t, func() bool {
		return st.Position() == state.Vec3{X: 3, Y: -1, Z: 0.8}
	}, 2*time.Second, 5*time.Millisecond)
}

type countingDialer struct {
	taglink.Dialer
	n atomic.Int32
}

func (c *countingDialer) Dial(ctx context.Context) (taglink.Session, error) {
	c.n.Add(1)
	return c.Dialer.Dial(ctx)
}

func TestGatewayOverBrokerConnectsFirstDial(t *testing.T) {
	srv, err := tagserver.NewServer()
	require.NoError(t, err)
	d := New(state.Vec3{Z: 1}, WithSpeed(100), WithPeriod(5*time.Millisecond))
	require.NoError(t, d.HostOn(srv))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	require.NoError(t, srv.Serve(addr))
	defer srv.Shutdown()
	go d.Run()
	defer d.Stop()

	dialer := &countingDialer{Dialer: mqtt.New("tcp://"+addr, mqtt.WithLookupWait(2*time.Second))}
	st := state.New(state.Vec3{Z: 1})
	s := bridge.New(dialer, st, bridge.WithPeriod(10*time.Millisecond), bridge.WithRetryDelay(time.Minute))
	go s.Run()
	defer func() { s.Stop(); <-s.Done() }()

	require.Eventually(t, func() bool {
		return s.State() == taglink.Connected
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), dialer.n.Load())

	st.SetSetpoint(state.Vec3{X: 2, Y: 1, Z: 0.5})
	require.Eventually(t, func() bool {
		return st.Position() == state.Vec3{X: 2, Y: 1, Z: 0.5}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), dialer.n.Load())
}
