// Package config contains a convenient structure to pass around
// configuration data.
package config

import (
	"time"

	"github.com/sda-platform/dronebridge/pkg/state"
)

// Config is the complete configuration for every dronebridge
// process.  Each subcommand only reads its own section.
type Config struct {
	Gateway   Gateway
	Relay     Relay
	Historian Historian
	Client    Client
	Sim       Sim
}

// Tags names a container and the position and target tags within it.
type Tags struct {
	Namespace string
	Container string
	Sensors   []string
	Targets   []string
}

// Gateway configures the sync loop and the command channel.
type Gateway struct {
	// Source is the URL of the drone's tag server.  The scheme
	// selects the driver: opc.tcp, mqtt, tcp or mem.
	Source string

	CommandBind string `mapstructure:"command_bind"`
	StatusBind  string `mapstructure:"status_bind"`
	Advertise   bool

	Period      time.Duration
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`

	DefaultSetpoint state.Vec3 `mapstructure:"default_setpoint"`
	Tags            Tags
}

// Relay configures the republishing endpoint.
type Relay struct {
	// Upstream is the URL the sensor values are read from.
	Upstream string
	Bind     string

	// MetricsBind serves /metrics when set.
	MetricsBind string `mapstructure:"metrics_bind"`

	Period     time.Duration
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	Tags Tags

	Namespace string
	Object    string
	Variables []string
}

// Historian configures the sample logger.
type Historian struct {
	Endpoint string
	File     string
	SQLite   string

	MetricsBind string `mapstructure:"metrics_bind"`

	Period     time.Duration
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Client configures the one-shot command client.
type Client struct {
	Address string
	Timeout time.Duration
	LogFile string `mapstructure:"log_file"`
}

// Sim configures the drone simulator.
type Sim struct {
	Bind   string
	Speed  float64
	Period time.Duration
	Start  state.Vec3
}
