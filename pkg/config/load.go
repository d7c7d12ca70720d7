package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sda-platform/dronebridge/pkg/bridge"
	"github.com/sda-platform/dronebridge/pkg/relay"
)

// EnvPrefix is prepended to every environment override, so
// gateway.command_bind becomes DRONEBRIDGE_GATEWAY_COMMAND_BIND.
const EnvPrefix = "DRONEBRIDGE"

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"source":       "gateway.source",
	"command-bind": "gateway.command_bind",
	"status-bind":  "gateway.status_bind",
	"advertise":    "gateway.advertise",
	"upstream":     "relay.upstream",
	"relay-bind":   "relay.bind",
	"endpoint":     "historian.endpoint",
	"file":         "historian.file",
	"sqlite":       "historian.sqlite",
	"address":      "client.address",
	"log-file":     "client.log_file",
	"sim-bind":     "sim.bind",
	"speed":        "sim.speed",
}

func setDefaults(v *viper.Viper) {
	up := bridge.DefaultTagMap()
	ep := relay.DefaultEndpoint()

	v.SetDefault("gateway.source", "opc.tcp://localhost:53530/OPCUA/SimulationServer")
	v.SetDefault("gateway.command_bind", "localhost:65432")
	v.SetDefault("gateway.status_bind", "localhost:8080")
	v.SetDefault("gateway.advertise", false)
	v.SetDefault("gateway.period", "500ms")
	v.SetDefault("gateway.retry_delay", "5s")
	v.SetDefault("gateway.read_timeout", "1s")
	v.SetDefault("gateway.stale_after", "5s")
	v.SetDefault("gateway.default_setpoint", map[string]float64{"x": 0, "y": 0, "z": 0})
	v.SetDefault("gateway.tags.namespace", up.Namespace)
	v.SetDefault("gateway.tags.container", up.Container)
	v.SetDefault("gateway.tags.sensors", up.Sensors[:])
	v.SetDefault("gateway.tags.targets", up.Targets[:])

	v.SetDefault("relay.upstream", "opc.tcp://localhost:53530/OPCUA/SimulationServer")
	v.SetDefault("relay.bind", relay.DefaultBind)
	v.SetDefault("relay.metrics_bind", "")
	v.SetDefault("relay.period", "2s")
	v.SetDefault("relay.retry_delay", "5s")
	v.SetDefault("relay.tags.namespace", up.Namespace)
	v.SetDefault("relay.tags.container", up.Container)
	v.SetDefault("relay.tags.sensors", up.Sensors[:])
	v.SetDefault("relay.namespace", ep.Namespace)
	v.SetDefault("relay.object", ep.Object)
	v.SetDefault("relay.variables", ep.Variables[:])

	v.SetDefault("historian.endpoint", "tcp://"+relay.DefaultBind)
	v.SetDefault("historian.file", "mes.txt")
	v.SetDefault("historian.sqlite", "")
	v.SetDefault("historian.metrics_bind", "")
	v.SetDefault("historian.period", "5s")
	v.SetDefault("historian.retry_delay", "5s")

	v.SetDefault("client.address", "localhost:65432")
	v.SetDefault("client.timeout", "1s")
	v.SetDefault("client.log_file", "historiador.txt")

	v.SetDefault("sim.bind", "localhost:4840")
	v.SetDefault("sim.speed", 0.5)
	v.SetDefault("sim.period", "100ms")
	v.SetDefault("sim.start", map[string]float64{"x": 0, "y": 0, "z": 0})
}

// Load assembles the configuration from defaults, the optional file
// at path, the environment and finally any flags in fs that were set
// on the command line.  An empty path skips the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	for name, t := range map[string]Tags{"gateway": c.Gateway.Tags, "relay": c.Relay.Tags} {
		if len(t.Sensors) != 3 {
			errs = append(errs, fmt.Errorf("%s: need 3 sensor tags, have %d", name, len(t.Sensors)))
		}
	}
	if len(c.Gateway.Tags.Targets) != 3 {
		errs = append(errs, fmt.Errorf("gateway: need 3 target tags, have %d", len(c.Gateway.Tags.Targets)))
	}
	if len(c.Relay.Variables) != 3 {
		errs = append(errs, fmt.Errorf("relay: need 3 variables, have %d", len(c.Relay.Variables)))
	}
	return errors.Join(errs...)
}

// TagMap converts the gateway tags for the sync loop.
func (g Gateway) TagMap() bridge.TagMap {
	return bridge.TagMap{
		Namespace: g.Tags.Namespace,
		Container: g.Tags.Container,
		Sensors:   [3]string(g.Tags.Sensors),
		Targets:   [3]string(g.Tags.Targets),
	}
}

// Source converts the relay's upstream tags.
func (r Relay) Source() relay.Source {
	return relay.Source{
		Namespace: r.Tags.Namespace,
		Container: r.Tags.Container,
		Sensors:   [3]string(r.Tags.Sensors),
	}
}

// Endpoint converts the relay's hosted layout.
func (r Relay) Endpoint() relay.Endpoint {
	return relay.Endpoint{
		Namespace: r.Namespace,
		Object:    r.Object,
		Variables: [3]string(r.Variables),
	}
}
