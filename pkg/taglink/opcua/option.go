package opcua

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the dialer.
type Option func(*Dialer)

// WithLogger sets the logger for the dialer.
func WithLogger(l hclog.Logger) Option {
	return func(d *Dialer) { d.l = l.Named("opcua") }
}

// WithTimeout bounds connection setup and each request.
func WithTimeout(t time.Duration) Option {
	return func(d *Dialer) { d.timeout = t }
}
