package tagserver

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// tagHook lets anyone connect and read, restricts writes to the
// variables this server hosts, and feeds remote writes back into
// those variables.
type tagHook struct {
	mqtt.HookBase

	l hclog.Logger
	s *Server
}

func newHook(l hclog.Logger, s *Server) *tagHook {
	th := new(tagHook)
	th.l = l
	th.s = s
	return th
}

// Provides flags which methods the server will invoke this hook for.
// Adding or removing methods in this file requires updating this
// value!
func (th *tagHook) Provides(b byte) bool {
	provides := map[byte]struct{}{
		mqtt.OnACLCheck:            struct{}{},
		mqtt.OnConnectAuthenticate: struct{}{},
		mqtt.OnDisconnect:          struct{}{},
		mqtt.OnSessionEstablished:  struct{}{},
		mqtt.OnStarted:             struct{}{},
		mqtt.OnPublished:           struct{}{},
	}
	_, ok := provides[b]
	return ok
}

// ID identifies this hook in the listing.
func (th *tagHook) ID() string {
	return "TagHook"
}

// OnStarted happens after the listeners are bound and the server is
// ready to process connections.
func (th *tagHook) OnStarted() {
	th.l.Info("Ready for connections")
	th.s.markReady()
}

// OnSessionEstablished happens after a client is completely connected.
func (th *tagHook) OnSessionEstablished(cl *mqtt.Client, pk packets.Packet) {
	th.l.Info("Client Connected", "client", cl.ID, "remote", cl.Net.Remote)
}

// OnDisconnect fires when a client is disconnected for any reason.
func (th *tagHook) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	th.l.Info("Client Disconnected", "client", cl.ID, "expired", expire)
}

// OnConnectAuthenticate allows anyone to connect; the tag endpoint is
// not authenticated.
func (th *tagHook) OnConnectAuthenticate(cl *mqtt.Client, pk packets.Packet) bool {
	return true
}

// OnACLCheck permits every subscription but only lets clients publish
// to topics that name a hosted variable.
func (th *tagHook) OnACLCheck(cl *mqtt.Client, topic string, write bool) bool {
	if !write || cl.Net.Inline {
		return true
	}
	return th.s.variable(topic) != nil
}

// OnPublished records remote writes into the hosted variable.  The
// server's own publishes have already updated the value.
func (th *tagHook) OnPublished(cl *mqtt.Client, pk packets.Packet) {
	if cl.Net.Inline {
		return
	}
	v := th.s.variable(pk.TopicName)
	if v == nil {
		return
	}
	if err := v.remoteWrite(pk.Payload); err != nil {
		th.l.Warn("Discarding unparseable write", "client", cl.ID, "topic", pk.TopicName, "error", err)
	}
}
