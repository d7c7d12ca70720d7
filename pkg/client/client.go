// Package client talks to the command channel.  Each Send opens a
// fresh connection, writes one setpoint and reads the position the
// gateway answers with.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrInvalidCommand is returned for setpoints that are not three
// plain decimals separated by commas.
var ErrInvalidCommand = errors.New("setpoint must be x,y,z")

var commandPattern = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?,-?\d+(\.\d+)?$`)

// Client sends setpoints to a gateway.
type Client struct {
	l       hclog.Logger
	addr    string
	timeout time.Duration
	h       *Historian
}

// New returns a client for the gateway at addr.
func New(addr string, opts ...Option) *Client {
	c := &Client{
		l:       hclog.NewNullLogger(),
		addr:    addr,
		timeout: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Valid reports whether cmd will be accepted by Send.
func Valid(cmd string) bool {
	return commandPattern.MatchString(cmd)
}

// Send delivers cmd and returns the gateway's reply.  Invalid
// commands are rejected before anything is sent and are not recorded.
func (c *Client) Send(ctx context.Context, cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	if !Valid(cmd) {
		return "", ErrInvalidCommand
	}

	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		c.l.Warn("Command failed", "command", cmd, "error", err)
	} else {
		c.l.Info("Command sent", "command", cmd, "response", resp)
	}
	if c.h != nil {
		if herr := c.h.Record(cmd, resp, err); herr != nil {
			c.l.Error("Could not record transaction", "error", herr)
		}
	}
	return resp, err
}

func (c *Client) exchange(ctx context.Context, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			return "", err
		}
	}
	if _, err := io.WriteString(conn, cmd); err != nil {
		return "", err
	}
	resp, err := io.ReadAll(io.LimitReader(conn, 1024))
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("%s closed the connection without a response", c.addr)
	}
	return string(resp), nil
}
