// Package tagserver hosts a small tag endpoint on an embedded MQTT
// broker.  Tags are organized as namespace / object / variable and
// each variable is a retained topic of the same path, so any MQTT
// client can browse and read the endpoint and late subscribers always
// see the current values.
package tagserver

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// ErrNotServing is returned when a variable is written before the
// endpoint has been started.
var ErrNotServing = errors.New("tag endpoint is not serving")

// Server binds the server's methods
type Server struct {
	l hclog.Logger
	s *mqtt.Server

	mu      sync.RWMutex
	vars    map[string]*Variable
	serving bool

	readyOnce sync.Once
	ready     chan struct{}
	closeOnce sync.Once
}

// Namespace is a registered namespace on the endpoint.
type Namespace struct {
	s    *Server
	name string
}

// Object is a container of variables within a namespace.
type Object struct {
	s    *Server
	ns   string
	name string
}

// Variable is a single hosted value.  It satisfies taglink.Tag so the
// owning process can treat it like any other tag.
type Variable struct {
	s     *Server
	name  string
	topic string

	mu    sync.Mutex
	value float64
}

// NewServer returns an endpoint that is configured but not yet
// listening.
func NewServer(opts ...Option) (*Server, error) {
	x := Server{
		l:     hclog.NewNullLogger(),
		s:     mqtt.New(&mqtt.Options{InlineClient: true}),
		vars:  make(map[string]*Variable),
		ready: make(chan struct{}),
	}

	for _, o := range opts {
		if err := o(&x); err != nil {
			return nil, err
		}
	}
	if err := x.s.AddHook(newHook(x.l, &x), nil); err != nil {
		return nil, err
	}
	return &x, nil
}

// Serve binds the listener and starts the broker.  It returns once
// the endpoint is accepting connections, or with an error if the
// socket could not be bound.
func (s *Server) Serve(bind string) error {
	s.l.Info("Tag endpoint is starting", "bind", bind)
	l := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Address: bind,
	})
	if err := s.s.AddListener(l); err != nil {
		return err
	}
	if err := s.s.Serve(); err != nil {
		return err
	}
	<-s.ready

	s.mu.Lock()
	s.serving = true
	vars := make([]*Variable, 0, len(s.vars))
	for _, v := range s.vars {
		vars = append(vars, v)
	}
	s.mu.Unlock()

	for _, v := range vars {
		if err := v.publish(v.Value()); err != nil {
			return err
		}
	}
	return nil
}

// Ready is closed once the endpoint is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown stops the broker and closes all client connections.  It
// is safe to call more than once.
func (s *Server) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		s.l.Info("Stopping...")
		s.mu.Lock()
		s.serving = false
		s.mu.Unlock()
		err = s.s.Close()
	})
	return err
}

// RegisterNamespace returns a handle for the named namespace.
func (s *Server) RegisterNamespace(name string) *Namespace {
	return &Namespace{s: s, name: name}
}

// AddObject creates an object beneath the namespace.
func (ns *Namespace) AddObject(name string) *Object {
	return &Object{s: ns.s, ns: ns.name, name: name}
}

// AddVariable creates a variable with an initial value.  If the
// endpoint is already serving the value is published immediately.
func (o *Object) AddVariable(name string, initial float64) (*Variable, error) {
	v := &Variable{
		s:     o.s,
		name:  name,
		topic: path.Join(o.ns, o.name, name),
		value: initial,
	}

	o.s.mu.Lock()
	o.s.vars[v.topic] = v
	serving := o.s.serving
	o.s.mu.Unlock()

	if serving {
		if err := v.publish(initial); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Server) variable(topic string) *Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[topic]
}

func (s *Server) isServing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serving
}

// Name returns the variable's browse name.
func (v *Variable) Name() string { return v.name }

// Topic returns the path the variable is published on.
func (v *Variable) Topic() string { return v.topic }

// Value returns the current value.
func (v *Variable) Value() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set updates the value and publishes it to subscribers.
func (v *Variable) Set(val float64) error {
	if !v.s.isServing() {
		return ErrNotServing
	}
	v.mu.Lock()
	v.value = val
	v.mu.Unlock()
	return v.publish(val)
}

// Read implements taglink.Tag.
func (v *Variable) Read(_ context.Context) (float64, error) {
	return v.Value(), nil
}

// Write implements taglink.Tag.
func (v *Variable) Write(_ context.Context, val float64) error {
	return v.Set(val)
}

func (v *Variable) publish(val float64) error {
	return v.s.s.Publish(v.topic, taglink.FormatValue(val), true, 1)
}

func (v *Variable) remoteWrite(payload []byte) error {
	val, err := taglink.ParseValue(payload)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.value = val
	v.mu.Unlock()
	return nil
}
