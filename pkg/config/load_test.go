package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/bridge"
	"github.com/sda-platform/dronebridge/pkg/relay"
	"github.com/sda-platform/dronebridge/pkg/state"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:65432", cfg.Gateway.CommandBind)
	assert.Equal(t, 500*time.Millisecond, cfg.Gateway.Period)
	assert.Equal(t, 5*time.Second, cfg.Gateway.RetryDelay)
	assert.Equal(t, time.Second, cfg.Gateway.ReadTimeout)
	assert.Equal(t, bridge.DefaultTagMap(), cfg.Gateway.TagMap())

	assert.Equal(t, "localhost:4850", cfg.Relay.Bind)
	assert.Equal(t, 2*time.Second, cfg.Relay.Period)
	assert.Equal(t, relay.DefaultEndpoint(), cfg.Relay.Endpoint())
	assert.Equal(t, relay.DefaultSource(), cfg.Relay.Source())

	assert.Equal(t, 5*time.Second, cfg.Historian.Period)
	assert.Equal(t, "mes.txt", cfg.Historian.File)
	assert.Equal(t, "historiador.txt", cfg.Client.LogFile)
	assert.Equal(t, state.Vec3{}, cfg.Gateway.DefaultSetpoint)
}

func TestFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dronebridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  source: mqtt://broker:1883
  period: 250ms
  default_setpoint: {x: 1, y: 2, z: 3}
  tags:
    container: UAV
historian:
  file: /var/log/mes.txt
`), 0644))

	t.Setenv("DRONEBRIDGE_HISTORIAN_FILE", "/tmp/env.txt")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("command-bind", "", "")
	require.NoError(t, fs.Parse([]string{"--command-bind", "0.0.0.0:7000"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "mqtt://broker:1883", cfg.Gateway.Source)
	assert.Equal(t, 250*time.Millisecond, cfg.Gateway.Period)
	assert.Equal(t, state.Vec3{X: 1, Y: 2, Z: 3}, cfg.Gateway.DefaultSetpoint)
	assert.Equal(t, "UAV", cfg.Gateway.TagMap().Container)
	assert.Equal(t, "DroneX", cfg.Gateway.TagMap().Sensors[0])
	assert.Equal(t, "/tmp/env.txt", cfg.Historian.File)
	assert.Equal(t, "0.0.0.0:7000", cfg.Gateway.CommandBind)
}

func TestUnsetFlagKeepsDefault(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("command-bind", "ignored:1", "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "localhost:65432", cfg.Gateway.CommandBind)
}

func TestBadTagCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relay:\n  variables: [a, b]\n"), 0644))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "need 3 variables")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
