// Package relay republishes the drone's sensor values on a
// self-hosted tag endpoint, where the historian picks them up.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/linkloop"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/tagserver"
)

const loopName = "relay"

// DefaultBind is the hosted endpoint's default address.
const DefaultBind = "localhost:4850"

// Source names the upstream container and its sensor tags.
type Source struct {
	Namespace string
	Container string
	Sensors   [3]string
}

// Endpoint names the hosted namespace, object and variables.
type Endpoint struct {
	Namespace string
	Object    string
	Variables [3]string
}

// DefaultSource reads the simulator's position tags.
func DefaultSource() Source {
	return Source{
		Namespace: "3",
		Container: "Drone",
		Sensors:   [3]string{"DroneX", "DroneY", "DroneZ"},
	}
}

// DefaultEndpoint is the layout the sample logger expects.
func DefaultEndpoint() Endpoint {
	return Endpoint{
		Namespace: "MES_Namespace",
		Object:    "MES_Data",
		Variables: [3]string{"Drone_X_MES", "Drone_Y_MES", "Drone_Z_MES"},
	}
}

// Relay owns the hosted endpoint and the upstream loop feeding it.
type Relay struct {
	l hclog.Logger

	src  Source
	ep   Endpoint
	bind string

	period     time.Duration
	retryDelay time.Duration

	m  *metrics.Metrics
	es eventstream.Publisher

	srv  *tagserver.Server
	vars [3]*tagserver.Variable
	lp   *linkloop.Loop

	mu      sync.Mutex
	running bool
	stopped bool
	stop    chan struct{}
}

// New builds the relay and registers its variables on a fresh
// endpoint.  Nothing is listening until Start.
func New(up taglink.Dialer, opts ...Option) (*Relay, error) {
	r := &Relay{
		l:          hclog.NewNullLogger(),
		src:        DefaultSource(),
		ep:         DefaultEndpoint(),
		bind:       DefaultBind,
		period:     time.Second * 2,
		retryDelay: linkloop.DefaultRetryDelay,
		es:         eventstream.NewNullStreamer(),
		stop:       make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	if r.m == nil {
		r.m = metrics.New()
	}

	srv, err := tagserver.NewServer(tagserver.WithLogger(r.l))
	if err != nil {
		return nil, err
	}
	r.srv = srv

	obj := srv.RegisterNamespace(r.ep.Namespace).AddObject(r.ep.Object)
	for i, name := range r.ep.Variables {
		v, err := obj.AddVariable(name, 0)
		if err != nil {
			return nil, err
		}
		r.vars[i] = v
	}

	r.lp = linkloop.New(loopName, up, r.bindUpstream, r.cycle,
		linkloop.WithLogger(r.l),
		linkloop.WithPeriod(r.period),
		linkloop.WithRetryDelay(r.retryDelay),
		linkloop.WithMetrics(r.m),
		linkloop.WithEventStream(r.es),
	)
	return r, nil
}

// Start brings up the hosted endpoint and returns once it is
// accepting connections.  A bind error is returned unchanged.
func (r *Relay) Start() error {
	if err := r.srv.Serve(r.bind); err != nil {
		return err
	}
	r.l.Info("Endpoint is serving", "bind", r.bind, "namespace", r.ep.Namespace, "object", r.ep.Object)
	return nil
}

// Run drives the upstream loop until Stop.  It waits for Start to
// bring the endpoint up, and returns without polling if Stop comes
// first.
func (r *Relay) Run() {
	select {
	case <-r.srv.Ready():
	case <-r.stop:
		return
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()
	r.lp.Run()
}

// Stop ends the upstream loop and shuts the endpoint down.
func (r *Relay) Stop() error {
	r.mu.Lock()
	running := r.running
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
	r.mu.Unlock()

	r.lp.Stop()
	if running {
		<-r.lp.Done()
	}
	return r.srv.Shutdown()
}

// State reports the upstream link state.
func (r *Relay) State() taglink.LinkState {
	return r.lp.State()
}

// Values returns what the endpoint is currently publishing.
func (r *Relay) Values() state.Vec3 {
	return state.Vec3{X: r.vars[0].Value(), Y: r.vars[1].Value(), Z: r.vars[2].Value()}
}

func (r *Relay) bindUpstream(ctx context.Context, sess taglink.Session) (taglink.Binding, error) {
	return taglink.Bind(ctx, sess, taglink.BindSpec{
		Namespace: r.src.Namespace,
		Container: r.src.Container,
		Tags:      r.src.Sensors[:],
	})
}

func (r *Relay) cycle(ctx context.Context, b taglink.Binding) error {
	v, err := b.ReadAll(ctx, r.src.Sensors[:]...)
	if err != nil {
		return err
	}
	for i, val := range v {
		if err := r.vars[i].Set(val); err != nil {
			r.l.Warn("Could not update endpoint", "variable", r.vars[i].Name(), "error", err)
		}
	}
	r.l.Trace("Relayed", "x", v[0], "y", v[1], "z", v[2])
	return nil
}
