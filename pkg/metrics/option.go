package metrics

import (
	"github.com/hashicorp/go-hclog"
)

// WithLogger provides a non-nil logger for the metrics instance to
// interact with.
func WithLogger(l hclog.Logger) Option {
	return func(m *Metrics) {
		m.l = l.Named("metrics")
	}
}
