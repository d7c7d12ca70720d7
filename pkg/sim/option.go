package sim

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/bridge"
)

// Option configures the Drone.
type Option func(*Drone)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(d *Drone) { d.l = l.Named("sim") }
}

// WithSpeed sets the maximum travel speed in meters per second.
func WithSpeed(mps float64) Option {
	return func(d *Drone) { d.speed = mps }
}

// WithPeriod sets the simulation tick.
func WithPeriod(p time.Duration) Option {
	return func(d *Drone) { d.period = p }
}

// WithTags sets the tag names the drone reads and writes.
func WithTags(t bridge.TagMap) Option {
	return func(d *Drone) { d.tags = t }
}
