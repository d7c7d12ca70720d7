// Package memory is an in-process tag directory.  It backs the
// simulator's mem:// source and gives tests a tag endpoint whose
// failures can be scripted.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// ErrDown is returned by every operation while the directory is
// marked down.
var ErrDown = errors.New("endpoint unreachable")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Directory is a set of containers reachable through Dial.
type Directory struct {
	mu sync.Mutex

	containers []*Container
	down       bool
	dialTimes  []time.Time
}

// Container holds tags within a directory.
type Container struct {
	d *Directory

	namespace string
	name      string
	tags      []*Tag
}

// Tag is a single value within a container.
type Tag struct {
	d *Directory

	namespace string
	name      string
	value     float64
	writes    int

	failReads  int
	failWrites int
}

// New returns an empty directory.
func New() *Directory {
	return new(Directory)
}

// AddContainer creates a container directly beneath the root.
func (d *Directory) AddContainer(namespace, name string) *Container {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &Container{d: d, namespace: namespace, name: name}
	d.containers = append(d.containers, c)
	return c
}

// SetDown makes the directory refuse dials and fail every operation
// on open sessions.
func (d *Directory) SetDown(down bool) {
	d.mu.Lock()
	d.down = down
	d.mu.Unlock()
}

// Dials returns the number of Dial calls observed so far.
func (d *Directory) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialTimes)
}

// DialTimes returns the time of every Dial call.
func (d *Directory) DialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.dialTimes))
	copy(out, d.dialTimes)
	return out
}

// Dial opens a session.
func (d *Directory) Dial(_ context.Context) (taglink.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialTimes = append(d.dialTimes, time.Now())
	if d.down {
		return nil, &taglink.TransportError{Op: "dial", Err: ErrDown}
	}
	return &session{d: d}, nil
}

// AddTag creates a tag inside the container with an initial value.
func (c *Container) AddTag(name string, v float64) *Tag {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	t := &Tag{d: c.d, namespace: c.namespace, name: name, value: v}
	c.tags = append(c.tags, t)
	return t
}

// Value returns the tag's current value.
func (t *Tag) Value() float64 {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	return t.value
}

// Set replaces the tag's value as the server side would.
func (t *Tag) Set(v float64) {
	t.d.mu.Lock()
	t.value = v
	t.d.mu.Unlock()
}

// Writes returns the number of successful client writes.
func (t *Tag) Writes() int {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	return t.writes
}

// FailReads makes the next n reads of this tag fail.
func (t *Tag) FailReads(n int) {
	t.d.mu.Lock()
	t.failReads = n
	t.d.mu.Unlock()
}

// FailWrites makes the next n writes of this tag fail.
func (t *Tag) FailWrites(n int) {
	t.d.mu.Lock()
	t.failWrites = n
	t.d.mu.Unlock()
}

type session struct {
	d      *Directory
	closed bool
}

// usable must be called with the directory lock held.
func (s *session) usable() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.d.down:
		return ErrDown
	}
	return nil
}

func (s *session) Lookup(_ context.Context, namespace, name string) (taglink.Container, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, &taglink.TransportError{Op: "lookup", Tag: name, Err: err}
	}
	for _, c := range s.d.containers {
		if c.namespace == namespace && c.name == name {
			return &containerHandle{s: s, c: c}, nil
		}
	}
	return nil, fmt.Errorf("%s:%s: %w", namespace, name, taglink.ErrNotFound)
}

func (s *session) Containers(_ context.Context) ([]taglink.Container, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, &taglink.TransportError{Op: "browse", Err: err}
	}
	out := make([]taglink.Container, len(s.d.containers))
	for i, c := range s.d.containers {
		out[i] = &containerHandle{s: s, c: c}
	}
	return out, nil
}

func (s *session) Close(_ context.Context) error {
	s.d.mu.Lock()
	s.closed = true
	s.d.mu.Unlock()
	return nil
}

type containerHandle struct {
	s *session
	c *Container
}

func (ch *containerHandle) Name() string { return ch.c.name }

func (ch *containerHandle) Tag(_ context.Context, namespace, name string) (taglink.Tag, error) {
	ch.s.d.mu.Lock()
	defer ch.s.d.mu.Unlock()
	if err := ch.s.usable(); err != nil {
		return nil, &taglink.TransportError{Op: "lookup", Tag: name, Err: err}
	}
	for _, t := range ch.c.tags {
		if t.namespace == namespace && t.name == name {
			return &tagHandle{s: ch.s, t: t}, nil
		}
	}
	return nil, fmt.Errorf("%s:%s: %w", namespace, name, taglink.ErrNotFound)
}

func (ch *containerHandle) Tags(_ context.Context) ([]taglink.Tag, error) {
	ch.s.d.mu.Lock()
	defer ch.s.d.mu.Unlock()
	if err := ch.s.usable(); err != nil {
		return nil, &taglink.TransportError{Op: "browse", Tag: ch.c.name, Err: err}
	}
	out := make([]taglink.Tag, len(ch.c.tags))
	for i, t := range ch.c.tags {
		out[i] = &tagHandle{s: ch.s, t: t}
	}
	return out, nil
}

type tagHandle struct {
	s *session
	t *Tag
}

func (th *tagHandle) Name() string { return th.t.name }

func (th *tagHandle) Read(_ context.Context) (float64, error) {
	th.s.d.mu.Lock()
	defer th.s.d.mu.Unlock()
	if err := th.s.usable(); err != nil {
		return 0, &taglink.TransportError{Op: "read", Tag: th.t.name, Err: err}
	}
	if th.t.failReads > 0 {
		th.t.failReads--
		return 0, &taglink.TransportError{Op: "read", Tag: th.t.name, Err: errors.New("injected read failure")}
	}
	return th.t.value, nil
}

func (th *tagHandle) Write(_ context.Context, v float64) error {
	th.s.d.mu.Lock()
	defer th.s.d.mu.Unlock()
	if err := th.s.usable(); err != nil {
		return &taglink.TransportError{Op: "write", Tag: th.t.name, Err: err}
	}
	if th.t.failWrites > 0 {
		th.t.failWrites--
		return &taglink.TransportError{Op: "write", Tag: th.t.name, Err: errors.New("injected write failure")}
	}
	th.t.value = v
	th.t.writes++
	return nil
}
