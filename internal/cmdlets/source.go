package cmdlets

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sda-platform/dronebridge/pkg/config"
	"github.com/sda-platform/dronebridge/pkg/sim"
	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
	"github.com/sda-platform/dronebridge/pkg/taglink/mqtt"
	"github.com/sda-platform/dronebridge/pkg/taglink/opcua"
)

// openSource picks the tag driver from the URL scheme.  A mem:// URL
// starts an in-process simulated drone, which the returned stop
// function shuts down.
func openSource(raw string, cfg *config.Config) (taglink.Dialer, func(), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil, err
	}

	switch u.Scheme {
	case "opc.tcp":
		return opcua.New(raw, opcua.WithLogger(appLogger)), func() {}, nil
	case "mqtt", "tcp":
		if u.Host == "" {
			return nil, nil, fmt.Errorf("%s: missing host", raw)
		}
		return mqtt.New("tcp://"+u.Host, mqtt.WithLogger(appLogger)), func() {}, nil
	case "mem":
		dir := memory.New()
		d := sim.New(cfg.Sim.Start,
			sim.WithLogger(appLogger),
			sim.WithSpeed(cfg.Sim.Speed),
			sim.WithPeriod(cfg.Sim.Period),
			sim.WithTags(cfg.Gateway.TagMap()),
		)
		if err := d.HostIn(context.Background(), dir); err != nil {
			return nil, nil, err
		}
		go d.Run()
		return dir, d.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}
