// Package mqtt reads and writes tags published as retained topics on
// an MQTT broker, such as the endpoint served by pkg/tagserver.  A
// tag at namespace/object/variable is the topic of the same path and
// its payload is the decimal value.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// ErrTimeout is returned when the broker does not acknowledge an
// operation in time.
var ErrTimeout = errors.New("timed out waiting for broker")

// Dialer opens sessions against one broker.
type Dialer struct {
	l hclog.Logger

	broker         string
	prefix         string
	connectTimeout time.Duration
	lookupWait     time.Duration
	settleWindow   time.Duration
}

// New returns a dialer for the broker address, for example
// tcp://localhost:4850.
func New(broker string, opts ...Option) *Dialer {
	d := &Dialer{
		l:              hclog.NewNullLogger(),
		broker:         broker,
		prefix:         "dronebridge",
		connectTimeout: time.Second * 3,
		lookupWait:     time.Second,
		settleWindow:   100 * time.Millisecond,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type session struct {
	l hclog.Logger
	m paho.Client

	lookupWait time.Duration
	settle     time.Duration
	opTimeout  time.Duration

	mu     sync.Mutex
	values map[string]float64
	lost   error
}

// Dial connects to the broker and subscribes to every tag.  The
// client never reconnects on its own; the owning loop decides when to
// dial again.
func (d *Dialer) Dial(ctx context.Context) (taglink.Session, error) {
	s := &session{
		l:          d.l,
		lookupWait: d.lookupWait,
		settle:     d.settleWindow,
		opTimeout:  d.connectTimeout,
		values:     make(map[string]float64),
	}

	copts := paho.NewClientOptions().
		AddBroker(d.broker).
		SetAutoReconnect(false).
		SetClientID(fmt.Sprintf("%s-%s", d.prefix, uuid.NewString())).
		SetConnectRetry(false).
		SetCleanSession(true).
		SetConnectTimeout(d.connectTimeout).
		SetConnectionLostHandler(s.connectionLost)
	s.m = paho.NewClient(copts)

	if err := s.wait(s.m.Connect()); err != nil {
		return nil, &taglink.TransportError{Op: "dial", Tag: d.broker, Err: err}
	}
	if err := s.wait(s.m.Subscribe("+/+/+", 1, s.onMessage)); err != nil {
		s.m.Disconnect(0)
		return nil, &taglink.TransportError{Op: "subscribe", Tag: d.broker, Err: err}
	}
	d.l.Debug("Connected to broker", "broker", d.broker)
	return s, nil
}

func (s *session) wait(tok paho.Token) error {
	if !tok.WaitTimeout(s.opTimeout) {
		return ErrTimeout
	}
	return tok.Error()
}

func (s *session) connectionLost(_ paho.Client, err error) {
	s.l.Warn("Connection to broker lost", "error", err)
	s.mu.Lock()
	s.lost = err
	s.mu.Unlock()
}

func (s *session) onMessage(_ paho.Client, msg paho.Message) {
	v, err := taglink.ParseValue(msg.Payload())
	if err != nil {
		s.l.Trace("Ignoring non-numeric topic", "topic", msg.Topic())
		return
	}
	s.mu.Lock()
	s.values[msg.Topic()] = v
	s.mu.Unlock()
}

func (s *session) broken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost != nil {
		return s.lost
	}
	if !s.m.IsConnectionOpen() {
		return errors.New("not connected")
	}
	return nil
}

// await polls until ok reports true, the lookup wait expires, or the
// session breaks.  ok is called with the value lock held.
func (s *session) await(ctx context.Context, ok func() bool) (bool, error) {
	deadline := time.Now().Add(s.lookupWait)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := s.broken(); err != nil {
			return false, err
		}
		s.mu.Lock()
		found := ok()
		s.mu.Unlock()
		if found {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// quiesce waits for the retained burst that follows the subscription
// to finish.  It returns once count has been non-zero and unchanged for
// the settle window, or when the lookup wait expires.  count is called
// with the value lock held.
func (s *session) quiesce(ctx context.Context, count func() int) error {
	deadline := time.Now().Add(s.lookupWait)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	last, since := -1, time.Now()
	for {
		if err := s.broken(); err != nil {
			return err
		}
		s.mu.Lock()
		n := count()
		s.mu.Unlock()

		now := time.Now()
		switch {
		case n != last:
			last, since = n, now
		case n > 0 && now.Sub(since) >= s.settle:
			return nil
		}
		if now.After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// countPrefix must be called with the value lock held.
func (s *session) countPrefix(prefix string) int {
	n := 0
	for topic := range s.values {
		if strings.HasPrefix(topic, prefix) {
			n++
		}
	}
	return n
}

// hasPrefix must be called with the value lock held.
func (s *session) hasPrefix(prefix string) bool {
	for topic := range s.values {
		if strings.HasPrefix(topic, prefix) {
			return true
		}
	}
	return false
}

func (s *session) Lookup(ctx context.Context, namespace, name string) (taglink.Container, error) {
	prefix := path.Join(namespace, name) + "/"
	found, err := s.await(ctx, func() bool { return s.hasPrefix(prefix) })
	if err != nil {
		return nil, &taglink.TransportError{Op: "lookup", Tag: name, Err: err}
	}
	if !found {
		return nil, fmt.Errorf("%s:%s: %w", namespace, name, taglink.ErrNotFound)
	}
	return &container{s: s, ns: namespace, name: name}, nil
}

func (s *session) Containers(ctx context.Context) ([]taglink.Container, error) {
	if err := s.quiesce(ctx, func() int { return len(s.values) }); err != nil {
		return nil, &taglink.TransportError{Op: "browse", Err: err}
	}

	s.mu.Lock()
	seen := make(map[string]struct{})
	for topic := range s.values {
		parts := strings.Split(topic, "/")
		seen[parts[0]+"/"+parts[1]] = struct{}{}
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]taglink.Container, len(keys))
	for i, k := range keys {
		parts := strings.SplitN(k, "/", 2)
		out[i] = &container{s: s, ns: parts[0], name: parts[1]}
	}
	return out, nil
}

func (s *session) Close(_ context.Context) error {
	s.m.Disconnect(250)
	return nil
}

type container struct {
	s    *session
	ns   string
	name string
}

func (c *container) Name() string { return c.name }

func (c *container) Tag(ctx context.Context, namespace, name string) (taglink.Tag, error) {
	topic := path.Join(namespace, c.name, name)
	found, err := c.s.await(ctx, func() bool {
		_, ok := c.s.values[topic]
		return ok
	})
	if err != nil {
		return nil, &taglink.TransportError{Op: "lookup", Tag: name, Err: err}
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", topic, taglink.ErrNotFound)
	}
	return &tag{s: c.s, name: name, topic: topic}, nil
}

func (c *container) Tags(ctx context.Context) ([]taglink.Tag, error) {
	prefix := path.Join(c.ns, c.name) + "/"
	if err := c.s.quiesce(ctx, func() int { return c.s.countPrefix(prefix) }); err != nil {
		return nil, &taglink.TransportError{Op: "browse", Tag: c.name, Err: err}
	}

	c.s.mu.Lock()
	topics := []string{}
	for topic := range c.s.values {
		if strings.HasPrefix(topic, prefix) {
			topics = append(topics, topic)
		}
	}
	c.s.mu.Unlock()
	sort.Strings(topics)

	out := make([]taglink.Tag, len(topics))
	for i, topic := range topics {
		out[i] = &tag{s: c.s, name: path.Base(topic), topic: topic}
	}
	return out, nil
}

type tag struct {
	s     *session
	name  string
	topic string
}

func (t *tag) Name() string { return t.name }

func (t *tag) Read(_ context.Context) (float64, error) {
	if err := t.s.broken(); err != nil {
		return 0, &taglink.TransportError{Op: "read", Tag: t.name, Err: err}
	}
	t.s.mu.Lock()
	v, ok := t.s.values[t.topic]
	t.s.mu.Unlock()
	if !ok {
		return 0, &taglink.TransportError{Op: "read", Tag: t.name, Err: taglink.ErrNotFound}
	}
	return v, nil
}

func (t *tag) Write(_ context.Context, v float64) error {
	if err := t.s.broken(); err != nil {
		return &taglink.TransportError{Op: "write", Tag: t.name, Err: err}
	}
	if err := t.s.wait(t.s.m.Publish(t.topic, 1, true, taglink.FormatValue(v))); err != nil {
		return &taglink.TransportError{Op: "write", Tag: t.name, Err: err}
	}
	t.s.mu.Lock()
	t.s.values[t.topic] = v
	t.s.mu.Unlock()
	return nil
}
