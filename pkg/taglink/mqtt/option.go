package mqtt

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the dialer.
type Option func(*Dialer)

// WithLogger sets the logger for sessions opened by the dialer.
func WithLogger(l hclog.Logger) Option {
	return func(d *Dialer) { d.l = l.Named("mqtt") }
}

// WithClientPrefix sets the prefix of the generated client ID.
func WithClientPrefix(p string) Option {
	return func(d *Dialer) { d.prefix = p }
}

// WithConnectTimeout bounds how long Dial waits for the broker.
func WithConnectTimeout(t time.Duration) Option {
	return func(d *Dialer) { d.connectTimeout = t }
}

// WithLookupWait bounds how long a lookup waits for retained values
// to arrive before deciding a name does not exist.
func WithLookupWait(t time.Duration) Option {
	return func(d *Dialer) { d.lookupWait = t }
}

// WithSettleWindow sets how long the retained values under a container
// must stay unchanged before a browse reports them.
func WithSettleWindow(t time.Duration) Option {
	return func(d *Dialer) { d.settleWindow = t }
}
