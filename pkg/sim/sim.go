// Package sim is a stand-in for the drone.  It publishes a position
// on its sensor tags and flies that position toward whatever was last
// written to its target tags.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/bridge"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
	"github.com/sda-platform/dronebridge/pkg/tagserver"
)

// Drone moves at a bounded speed toward its target.
type Drone struct {
	l hclog.Logger

	tags   bridge.TagMap
	speed  float64
	period time.Duration

	b taglink.Binding

	mu  sync.Mutex
	pos state.Vec3

	stop chan struct{}
	done chan struct{}
}

// New returns a drone at start that has not been attached to any
// tags yet.
func New(start state.Vec3, opts ...Option) *Drone {
	d := &Drone{
		l:      hclog.NewNullLogger(),
		tags:   bridge.DefaultTagMap(),
		speed:  0.5,
		period: time.Millisecond * 100,
		pos:    start,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// HostOn registers the drone's container on a tag endpoint.  Targets
// start at the current position so the drone holds still until
// commanded.
func (d *Drone) HostOn(srv *tagserver.Server) error {
	obj := srv.RegisterNamespace(d.tags.Namespace).AddObject(d.tags.Container)
	p := d.Position()
	p0 := [3]float64{p.X, p.Y, p.Z}

	b := make(taglink.Binding, 6)
	for i := range p0 {
		s, err := obj.AddVariable(d.tags.Sensors[i], p0[i])
		if err != nil {
			return err
		}
		t, err := obj.AddVariable(d.tags.Targets[i], p0[i])
		if err != nil {
			return err
		}
		b[d.tags.Sensors[i]] = s
		b[d.tags.Targets[i]] = t
	}
	d.b = b
	return nil
}

// HostIn creates the drone's container in an in-process directory
// and attaches to it.
func (d *Drone) HostIn(ctx context.Context, dir *memory.Directory) error {
	c := dir.AddContainer(d.tags.Namespace, d.tags.Container)
	p := d.Position()
	p0 := [3]float64{p.X, p.Y, p.Z}
	for i := range p0 {
		c.AddTag(d.tags.Sensors[i], p0[i])
		c.AddTag(d.tags.Targets[i], p0[i])
	}

	sess, err := dir.Dial(ctx)
	if err != nil {
		return err
	}
	tags := append(append([]string{}, d.tags.Sensors[:]...), d.tags.Targets[:]...)
	b, err := taglink.BindExact(ctx, sess, taglink.BindSpec{
		Namespace: d.tags.Namespace,
		Container: d.tags.Container,
		Tags:      tags,
	})
	if err != nil {
		return err
	}
	d.b = b
	return nil
}

// Position returns the simulated position.
func (d *Drone) Position() state.Vec3 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// Step advances the simulation by dt: the target is read, the
// position moves toward it by at most speed*dt, and the new position
// is written out.
func (d *Drone) Step(ctx context.Context, dt time.Duration) error {
	v, err := d.b.ReadAll(ctx, d.tags.Targets[:]...)
	if err != nil {
		return err
	}
	target := state.Vec3{X: v[0], Y: v[1], Z: v[2]}

	d.mu.Lock()
	d.pos = approach(d.pos, target, d.speed*dt.Seconds())
	p := d.pos
	d.mu.Unlock()

	return d.b.WriteAll(ctx, d.tags.Sensors[:], []float64{p.X, p.Y, p.Z})
}

// Run steps the drone every period until Stop.
func (d *Drone) Run() {
	defer close(d.done)
	ctx := context.Background()
	t := time.NewTicker(d.period)
	defer t.Stop()

	d.l.Info("Simulation running", "speed", d.speed, "period", d.period)
	for {
		select {
		case <-d.stop:
			return
		case <-t.C:
			if err := d.Step(ctx, d.period); err != nil {
				d.l.Warn("Step failed", "error", err)
			}
		}
	}
}

// Stop ends Run and waits for it to return.
func (d *Drone) Stop() {
	close(d.stop)
	<-d.done
}

func approach(from, to state.Vec3, maxDist float64) state.Vec3 {
	dx, dy, dz := to.X-from.X, to.Y-from.Y, to.Z-from.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist <= maxDist || dist == 0 {
		return to
	}
	k := maxDist / dist
	return state.Vec3{X: from.X + dx*k, Y: from.Y + dy*k, Z: from.Z + dz*k}
}
