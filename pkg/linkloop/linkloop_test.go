package linkloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
)

var spec = taglink.BindSpec{Namespace: "2", Container: "Box", Tags: []string{"A"}}

func bindSpec(ctx context.Context, s taglink.Session) (taglink.Binding, error) {
	return taglink.Bind(ctx, s, spec)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestLoopCycles(t *testing.T) {
	dir := memory.New()
	dir.AddContainer("2", "Box").AddTag("A", 1)

	var cycles atomic.Int32
	lp := New("test", dir, bindSpec, func(ctx context.Context, b taglink.Binding) error {
		_, err := b.ReadAll(ctx, "A")
		cycles.Add(1)
		return err
	}, WithPeriod(time.Millisecond), WithRetryDelay(10*time.Millisecond))

	assert.Equal(t, taglink.Disconnected, lp.State())
	go lp.Run()
	waitFor(t, func() bool { return cycles.Load() >= 3 })
	assert.Equal(t, taglink.Connected, lp.State())
	assert.Equal(t, 1, dir.Dials())

	lp.Stop()
	<-lp.Done()
}

func TestLoopReconnectSpacing(t *testing.T) {
	dir := memory.New()
	dir.AddContainer("2", "Box").AddTag("A", 1)
	dir.SetDown(true)

	delay := 40 * time.Millisecond
	lp := New("test", dir, bindSpec, func(context.Context, taglink.Binding) error {
		return nil
	}, WithPeriod(time.Millisecond), WithRetryDelay(delay))

	go lp.Run()
	waitFor(t, func() bool { return dir.Dials() >= 3 })
	lp.Stop()
	<-lp.Done()

	times := dir.DialTimes()
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), delay)
	}
	assert.Equal(t, taglink.Disconnected, lp.State())
}

func TestLoopCycleFailureReconnects(t *testing.T) {
	dir := memory.New()
	dir.AddContainer("2", "Box").AddTag("A", 1)

	var fail atomic.Bool
	fail.Store(true)
	lp := New("test", dir, bindSpec, func(context.Context, taglink.Binding) error {
		if fail.Swap(false) {
			return errors.New("boom")
		}
		return nil
	}, WithPeriod(time.Millisecond), WithRetryDelay(5*time.Millisecond))

	go lp.Run()
	waitFor(t, func() bool { return dir.Dials() == 2 && lp.State() == taglink.Connected })
	lp.Stop()
	<-lp.Done()
}

func TestLoopBindingFailureRetries(t *testing.T) {
	dir := memory.New()
	dir.AddContainer("2", "Other").AddTag("A", 1)

	var cycles atomic.Int32
	lp := New("test", dir, bindSpec, func(context.Context, taglink.Binding) error {
		cycles.Add(1)
		return nil
	}, WithPeriod(time.Millisecond), WithRetryDelay(5*time.Millisecond))

	go lp.Run()
	waitFor(t, func() bool { return dir.Dials() >= 2 })
	lp.Stop()
	<-lp.Done()

	assert.Zero(t, cycles.Load())
	assert.Equal(t, taglink.Disconnected, lp.State())
}

func TestStopWhileWaiting(t *testing.T) {
	dir := memory.New()
	dir.SetDown(true)

	lp := New("test", dir, bindSpec, nil, WithRetryDelay(time.Hour))
	go lp.Run()
	waitFor(t, func() bool { return dir.Dials() == 1 })

	lp.Stop()
	lp.Stop()
	select {
	case <-lp.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopFollowsBackOffPolicy(t *testing.T) {
	dir := memory.New()
	dir.AddContainer("2", "Box").AddTag("A", 1)
	dir.SetDown(true)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	lp := New("test", dir, bindSpec, func(context.Context, taglink.Binding) error {
		return nil
	}, WithPeriod(time.Millisecond), WithBackOff(b))

	go lp.Run()
	waitFor(t, func() bool { return dir.Dials() >= 3 })
	dir.SetDown(false)
	waitFor(t, func() bool { return lp.State() == taglink.Connected })
	lp.Stop()
	<-lp.Done()

	times := dir.DialTimes()
	require.GreaterOrEqual(t, len(times), 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 40*time.Millisecond)

	// Connecting resets the policy.
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
}

func TestLoopGivesUpOnStop(t *testing.T) {
	dir := memory.New()
	dir.SetDown(true)

	lp := New("test", dir, bindSpec, nil, WithBackOff(&backoff.StopBackOff{}))
	go lp.Run()
	select {
	case <-lp.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not give up")
	}
	assert.Equal(t, 1, dir.Dials())
	assert.Equal(t, taglink.Disconnected, lp.State())
}
