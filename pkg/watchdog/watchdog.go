// Package watchdog notices when a periodic process stops making
// progress.  Unlike a process supervisor it never kills anything: a
// bite runs a callback, and the next feed runs another.
package watchdog

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option changes features on the dog.
type Option func(*Dog)

// The DogHandFunc is the hand that the dog bites if it doesn't get
// fed frequently enough.
type DogHandFunc func()

// Dog handles the time since its last fed, and the callbacks that
// happen when it bites or is calmed down again.
type Dog struct {
	l hclog.Logger

	name string
	t    *time.Timer

	mu     sync.Mutex
	bitten bool

	biteFunc     DogHandFunc
	calmFunc     DogHandFunc
	foodDuration time.Duration
}

// New gets you a new watchdog.  The timer starts immediately.
func New(opts ...Option) *Dog {
	d := &Dog{
		name: "spot",
		l:    hclog.NewNullLogger(),

		biteFunc:     func() {},
		calmFunc:     func() {},
		foodDuration: time.Second * 10,
	}
	for _, o := range opts {
		o(d)
	}
	d.t = time.AfterFunc(d.foodDuration, d.Bite)
	return d
}

// Bite calls the bite function if nothing has called Feed within the
// food duration.
func (d *Dog) Bite() {
	d.mu.Lock()
	d.bitten = true
	d.mu.Unlock()

	d.l.Warn("BITE!", "dog", d.name, "starved", d.foodDuration)
	d.biteFunc()
}

// Feed convinces the dog not to bite for another food duration.  If
// the dog had already bitten, the calm function runs.
func (d *Dog) Feed() {
	d.mu.Lock()
	wasBitten := d.bitten
	d.bitten = false
	d.mu.Unlock()

	d.t.Reset(d.foodDuration)
	if wasBitten {
		d.l.Info("Fed again", "dog", d.name)
		d.calmFunc()
	}
}

// Bitten reports whether the dog is currently starved.
func (d *Dog) Bitten() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bitten
}

// Stop puts the dog away for good.
func (d *Dog) Stop() {
	d.t.Stop()
}

// WithHandFunction sets up the hand that the dog will bite.
func WithHandFunction(f DogHandFunc) Option { return func(d *Dog) { d.biteFunc = f } }

// WithCalmFunction is called on the first feed after a bite.
func WithCalmFunction(f DogHandFunc) Option { return func(d *Dog) { d.calmFunc = f } }

// WithFoodDuration sets up how long the dog stays fed for when you
// call Feed().
func WithFoodDuration(fd time.Duration) Option { return func(d *Dog) { d.foodDuration = fd } }

// WithName names the dog.  If you don't specify this, you'll likely
// get bit by a dog named spot.
func WithName(n string) Option { return func(d *Dog) { d.name = n } }

// WithLogger provides a logging instance to the watchdog.
func WithLogger(l hclog.Logger) Option { return func(d *Dog) { d.l = l.Named("watchdog") } }
