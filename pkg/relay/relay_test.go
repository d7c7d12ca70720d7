package relay

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
	"github.com/sda-platform/dronebridge/pkg/taglink/mqtt"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func upstream(pos state.Vec3) (*memory.Directory, [3]*memory.Tag) {
	dir := memory.New()
	c := dir.AddContainer("3", "Drone")
	return dir, [3]*memory.Tag{c.AddTag("DroneX", pos.X), c.AddTag("DroneY", pos.Y), c.AddTag("DroneZ", pos.Z)}
}

func TestRelayRepublishes(t *testing.T) {
	dir, sensors := upstream(state.Vec3{X: 3, Y: -1, Z: 0.8})
	addr := freeAddr(t)

	r, err := New(dir, WithBind(addr), WithPeriod(5*time.Millisecond), WithRetryDelay(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, r.Start())
	go r.Run()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return r.Values() == state.Vec3{X: 3, Y: -1, Z: 0.8}
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, taglink.Connected, r.State())

	ctx := context.Background()
	sess, err := mqtt.New("tcp://"+addr, mqtt.WithLookupWait(2*time.Second)).Dial(ctx)
	require.NoError(t, err)
	defer sess.Close(ctx)

	ep := DefaultEndpoint()
	b, err := taglink.BindExact(ctx, sess, taglink.BindSpec{
		Namespace: ep.Namespace,
		Container: ep.Object,
		Tags:      ep.Variables[:],
	})
	require.NoError(t, err)

	sensors[0].Set(4.5)
	require.Eventually(t, func() bool {
		v, err := b.ReadAll(ctx, ep.Variables[:]...)
		return err == nil && v[0] == 4.5 && v[1] == -1 && v[2] == 0.8
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelayKeepsLastValuesDuringOutage(t *testing.T) {
	dir, _ := upstream(state.Vec3{X: 1, Y: 2, Z: 3})

	r, err := New(dir, WithBind(freeAddr(t)), WithPeriod(5*time.Millisecond), WithRetryDelay(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, r.Start())
	go r.Run()
	defer r.Stop()

	require.Eventually(t, func() bool { return r.State() == taglink.Connected }, 2*time.Second, 5*time.Millisecond)
	dir.SetDown(true)
	require.Eventually(t, func() bool { return r.State() == taglink.Disconnected }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, state.Vec3{X: 1, Y: 2, Z: 3}, r.Values())
}

func TestRelayBindConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	dir, _ := upstream(state.Vec3{})
	r, err := New(dir, WithBind(l.Addr().String()))
	require.NoError(t, err)
	assert.Error(t, r.Start())
	assert.Zero(t, dir.Dials())
}

func TestRelayStopWithoutStart(t *testing.T) {
	dir, _ := upstream(state.Vec3{})
	r, err := New(dir, WithBind(freeAddr(t)))
	require.NoError(t, err)

	ran := make(chan struct{})
	go func() {
		r.Run()
		close(ran)
	}()

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked without a started endpoint")
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked without a started endpoint")
	}
	assert.Zero(t, dir.Dials())
}
