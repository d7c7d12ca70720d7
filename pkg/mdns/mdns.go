// Package mdns advertises dronebridge services on the local network
// so that clients can find the command channel without configuration.
package mdns

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/go-sockaddr"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type of the command channel.
const ServiceType = "_dronebridge._tcp"

// Server wraps the underlying mDNS implementation to provide a
// simplified interface.
type Server struct {
	*mdns.Server
}

// Announcement describes one advertised service.
type Announcement struct {
	Instance string
	Port     int
	Info     []string
}

// ParseBind extracts the port from a listen address.
func ParseBind(bind string) (int, error) {
	_, p, err := net.SplitHostPort(bind)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("bad port in %q: %w", bind, err)
	}
	return port, nil
}

// NewServer starts answering queries for the announcement on the
// host's private address.
func NewServer(a Announcement) (*Server, error) {
	lAddr, err := sockaddr.GetPrivateIP()
	if err != nil {
		return nil, err
	}
	if lAddr == "" {
		return nil, fmt.Errorf("no private address to advertise on")
	}

	info := a.Info
	if len(info) == 0 {
		info = []string{"dronebridge command channel"}
	}
	service, err := mdns.NewMDNSService(a.Instance, ServiceType, "", "", a.Port, []net.IP{net.ParseIP(lAddr)}, info)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, err
	}

	return &Server{server}, nil
}
