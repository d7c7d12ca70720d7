// Package cmdserver is the command channel.  Each TCP connection
// carries exactly one request: a setpoint in, the last known position
// out.  Connections are handled one at a time.
package cmdserver

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/eventstream"
	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
)

// DefaultBind is where the command channel listens unless told
// otherwise.
const DefaultBind = "localhost:65432"

const maxRequest = 1024

// ErrNotListening is returned by Serve before Listen has succeeded.
var ErrNotListening = errors.New("command server is not listening")

// Server answers setpoint requests against the shared state.
type Server struct {
	l  hclog.Logger
	st *state.State

	readTimeout time.Duration

	m  *metrics.Metrics
	es eventstream.Publisher

	mu       sync.Mutex
	ln       net.Listener
	stopping bool
}

// New returns a server bound to the shared state but not yet
// listening.
func New(st *state.State, opts ...Option) *Server {
	s := &Server{
		l:           hclog.NewNullLogger(),
		st:          st,
		readTimeout: time.Second,
		es:          eventstream.NewNullStreamer(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.m == nil {
		s.m = metrics.New()
	}
	return s
}

// Listen binds the listener.  An error here means the command channel
// cannot exist, and callers should treat it as fatal.
func (s *Server) Listen(bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.l.Info("Command channel listening", "address", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// acceptBackOff paces retries after a failed Accept, such as when the
// process is out of file descriptors.
func acceptBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Serve accepts and handles connections one at a time until Shutdown
// is called, at which point it returns nil.  Other accept errors are
// logged and retried.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	retry := acceptBackOff()
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			wait := retry.NextBackOff()
			s.l.Error("Accept failed", "error", err, "retry", wait)
			s.m.Command("accept_error")
			time.Sleep(wait)
			continue
		}
		retry.Reset()
		s.handle(conn)
	}
}

// Shutdown closes the listener.  A request already being handled is
// allowed to complete.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil || s.stopping {
		return nil
	}
	s.stopping = true
	return s.ln.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	l := s.l.With("peer", conn.RemoteAddr())

	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		l.Warn("Could not set read deadline", "error", err)
		return
	}

	buf := make([]byte, maxRequest)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			l.Debug("Connection closed without a request", "error", err)
		}
		s.m.Command("empty")
		return
	}
	payload := string(buf[:n])

	sp, err := ParseCommand(payload)
	if err != nil {
		l.Warn("Rejected command", "error", err)
		s.m.Command("malformed")
		s.reply(l, conn, ErrorResponse)
		return
	}

	s.st.SetSetpoint(sp)
	s.m.Setpoint(sp)
	s.es.PublishSetpoint(sp)
	pos := s.st.Position()
	l.Info("Setpoint accepted", "setpoint", sp, "position", pos)
	s.m.Command("ok")
	s.reply(l, conn, FormatPosition(pos))
}

func (s *Server) reply(l hclog.Logger, conn net.Conn, msg string) {
	if err := conn.SetWriteDeadline(time.Now().Add(s.readTimeout)); err != nil {
		l.Debug("Could not set write deadline", "error", err)
	}
	if _, err := conn.Write([]byte(msg)); err != nil {
		l.Warn("Could not send response", "error", err)
	}
}
