// Package linkloop runs the connection state machine shared by every
// loop that talks to a tag endpoint.  A loop starts Disconnected,
// dials and binds its tags to become Connected, then runs one cycle
// per period.  Any failure closes the session, returns to
// Disconnected and waits for the retry policy before the next single
// connection attempt.  The default policy is a fixed delay.
package linkloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// DefaultRetryDelay is the wait between connection attempts.
const DefaultRetryDelay = time.Second * 5

// A Binder resolves the tags a loop needs on a fresh session.
type Binder func(ctx context.Context, s taglink.Session) (taglink.Binding, error)

// A CycleFunc performs one unit of work against bound tags.  Any
// error is treated as the loss of the session.
type CycleFunc func(ctx context.Context, b taglink.Binding) error

// Loop owns one session to one endpoint.
type Loop struct {
	l    hclog.Logger
	name string

	dialer taglink.Dialer
	bind   Binder
	cycle  CycleFunc

	period time.Duration
	retry  backoff.BackOff

	m  *metrics.Metrics
	es eventstream.Publisher

	link atomic.Int32

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New returns a loop that is not yet running.
func New(name string, d taglink.Dialer, bind Binder, cycle CycleFunc, opts ...Option) *Loop {
	lp := &Loop{
		l:      hclog.NewNullLogger(),
		name:   name,
		dialer: d,
		bind:   bind,
		cycle:  cycle,
		period: time.Second,
		retry:  backoff.NewConstantBackOff(DefaultRetryDelay),
		es:     eventstream.NewNullStreamer(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(lp)
	}
	if lp.m == nil {
		lp.m = metrics.New()
	}
	return lp
}

// Run drives the state machine until Stop is called, or until the
// retry policy returns backoff.Stop.
func (lp *Loop) Run() {
	defer close(lp.done)
	ctx := context.Background()

	var sess taglink.Session
	var b taglink.Binding
	lp.l.Info("Starting", "period", lp.period)

	for {
		switch lp.State() {
		case taglink.Disconnected:
			var err error
			sess, b, err = lp.connect(ctx)
			if err != nil {
				if !lp.retryAfter(err) {
					return
				}
				continue
			}
			lp.retry.Reset()
			lp.setState(taglink.Connected)

		case taglink.Connected:
			if err := lp.cycle(ctx, b); err != nil {
				lp.teardown(ctx, sess)
				if !lp.retryAfter(err) {
					return
				}
				continue
			}
			lp.m.Cycle(lp.name)
			if !lp.sleep(lp.period) {
				lp.teardown(ctx, sess)
				return
			}
		}
	}
}

// Stop asks the loop to exit at its next wait.  An in-flight tag
// operation is allowed to finish.
func (lp *Loop) Stop() {
	lp.stopOnce.Do(func() {
		lp.l.Info("Stopping...")
		close(lp.stop)
	})
}

// Done is closed once Run has returned.
func (lp *Loop) Done() <-chan struct{} {
	return lp.done
}

// State returns the current link state.
func (lp *Loop) State() taglink.LinkState {
	return taglink.LinkState(lp.link.Load())
}

func (lp *Loop) setState(s taglink.LinkState) {
	if taglink.LinkState(lp.link.Swap(int32(s))) == s {
		return
	}
	lp.l.Info("Link state changed", "state", s)
	lp.m.LinkState(lp.name, s)
	lp.es.PublishLink(lp.name, s.String())
}

func (lp *Loop) connect(ctx context.Context) (taglink.Session, taglink.Binding, error) {
	sess, err := lp.dialer.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	b, err := lp.bind(ctx, sess)
	if err != nil {
		if cerr := sess.Close(ctx); cerr != nil {
			lp.l.Debug("Error closing session", "error", cerr)
		}
		return nil, nil, err
	}
	lp.l.Info("Tags bound", "count", len(b))
	return sess, b, nil
}

func (lp *Loop) teardown(ctx context.Context, sess taglink.Session) {
	if err := sess.Close(ctx); err != nil {
		lp.l.Debug("Error closing session", "error", err)
	}
	lp.setState(taglink.Disconnected)
}

// retryAfter reports err and waits out the next interval of the
// retry policy.  It returns false if the loop should exit.
func (lp *Loop) retryAfter(err error) bool {
	wait := lp.retry.NextBackOff()
	if taglink.IsBinding(err) {
		lp.l.Error("Tag binding failed", "error", err, "retry", wait)
	} else {
		lp.l.Warn("Link failure", "error", err, "retry", wait)
	}
	lp.m.LinkFailure(lp.name, err)
	lp.es.PublishError(lp.name, err)

	if wait == backoff.Stop {
		lp.l.Error("Retry policy exhausted, giving up")
		return false
	}
	return lp.sleep(wait)
}

func (lp *Loop) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-lp.stop:
		return false
	case <-t.C:
		return true
	}
}
