package client

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) { c.l = l.Named("client") }
}

// WithTimeout bounds the whole exchange, from dial to response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHistorian records every exchange to h.
func WithHistorian(h *Historian) Option {
	return func(c *Client) { c.h = h }
}
