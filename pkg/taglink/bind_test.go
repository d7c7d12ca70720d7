package taglink_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/taglink"
	"github.com/sda-platform/dronebridge/pkg/taglink/memory"
)

var droneTags = []string{"TargetX", "TargetY", "TargetZ", "DroneX", "DroneY", "DroneZ"}

func newDrone(ns string, names ...string) *memory.Directory {
	d := memory.New()
	c := d.AddContainer(ns, "Drone")
	for i, n := range names {
		c.AddTag(n, float64(i))
	}
	return d
}

func dial(t *testing.T, d *memory.Directory) taglink.Session {
	t.Helper()
	s, err := d.Dial(context.Background())
	require.NoError(t, err)
	return s
}

func TestBindDirect(t *testing.T) {
	d := newDrone("3", droneTags...)
	s := dial(t, d)

	b, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "Drone",
		Tags:      droneTags,
	})
	require.NoError(t, err)
	assert.Len(t, b, 6)

	vals, err := b.ReadAll(context.Background(), "DroneX", "DroneY", "DroneZ")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, vals)
}

func TestBindFallsBackToScan(t *testing.T) {
	// Wrong namespace forces the direct lookup to miss, and the
	// tag names differ in case from what is requested.
	d := newDrone("7", "targetx", "TARGETY", "TargetZ", "dronex", "DroneY", "DRONEZ")
	s := dial(t, d)

	b, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "drone",
		Tags:      droneTags,
	})
	require.NoError(t, err)
	assert.Equal(t, "dronex", b["DroneX"].Name())
}

func TestBindMissingTags(t *testing.T) {
	d := newDrone("3", "TargetX", "TargetY", "DroneX", "DroneY", "DroneZ")
	s := dial(t, d)

	_, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "Drone",
		Tags:      droneTags,
	})
	require.Error(t, err)
	assert.True(t, taglink.IsBinding(err))
	assert.Equal(t, "binding", taglink.Kind(err))

	var be *taglink.BindingError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, []string{"TargetZ"}, be.Missing)
	assert.Contains(t, be.Found, "dronex")
}

func TestBindMissingContainer(t *testing.T) {
	d := memory.New()
	d.AddContainer("3", "Robot")
	s := dial(t, d)

	_, err := taglink.Bind(context.Background(), s, taglink.BindSpec{Namespace: "3", Container: "Drone"})
	assert.True(t, taglink.IsBinding(err))
}

func TestBindTransportFailure(t *testing.T) {
	d := newDrone("3", droneTags...)
	s := dial(t, d)
	d.SetDown(true)

	_, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "Drone",
		Tags:      droneTags,
	})
	require.Error(t, err)
	assert.True(t, taglink.IsTransport(err))
	assert.Equal(t, "transport", taglink.Kind(err))
}

func TestBindExact(t *testing.T) {
	d := memory.New()
	c := d.AddContainer("MES_Namespace", "MES_Data")
	c.AddTag("Drone_X_MES", 1)
	c.AddTag("Drone_Y_MES", 2)
	c.AddTag("Drone_Z_MES", 3)
	s := dial(t, d)

	spec := taglink.BindSpec{
		Namespace: "MES_Namespace",
		Container: "MES_Data",
		Tags:      []string{"Drone_X_MES", "Drone_Y_MES", "Drone_Z_MES"},
	}
	b, err := taglink.BindExact(context.Background(), s, spec)
	require.NoError(t, err)
	vals, err := b.ReadAll(context.Background(), spec.Tags...)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, vals)

	// Exact lookups do not fold case.
	spec.Tags = []string{"drone_x_mes"}
	_, err = taglink.BindExact(context.Background(), s, spec)
	assert.True(t, taglink.IsBinding(err))

	spec.Container = "mes_data"
	_, err = taglink.BindExact(context.Background(), s, spec)
	assert.True(t, taglink.IsBinding(err))
}

func TestReadAllStopsAtFirstFailure(t *testing.T) {
	d := memory.New()
	c := d.AddContainer("3", "Drone")
	c.AddTag("DroneX", 1)
	y := c.AddTag("DroneY", 2)
	c.AddTag("DroneZ", 3)
	s := dial(t, d)

	b, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "Drone",
		Tags:      []string{"DroneX", "DroneY", "DroneZ"},
	})
	require.NoError(t, err)

	y.FailReads(1)
	vals, err := b.ReadAll(context.Background(), "DroneX", "DroneY", "DroneZ")
	assert.Nil(t, vals)
	assert.True(t, taglink.IsTransport(err))
}

func TestWriteAll(t *testing.T) {
	d := memory.New()
	c := d.AddContainer("3", "Drone")
	x := c.AddTag("TargetX", 0)
	y := c.AddTag("TargetY", 0)
	s := dial(t, d)

	b, err := taglink.Bind(context.Background(), s, taglink.BindSpec{
		Namespace: "3",
		Container: "Drone",
		Tags:      []string{"TargetX", "TargetY"},
	})
	require.NoError(t, err)

	require.NoError(t, b.WriteAll(context.Background(), []string{"TargetX", "TargetY"}, []float64{1.5, 2}))
	assert.Equal(t, 1.5, x.Value())
	assert.Equal(t, 2.0, y.Value())

	y.FailWrites(1)
	err = b.WriteAll(context.Background(), []string{"TargetX", "TargetY"}, []float64{3, 4})
	assert.True(t, taglink.IsTransport(err))
}

func TestLinkStateString(t *testing.T) {
	assert.Equal(t, "disconnected", taglink.Disconnected.String())
	assert.Equal(t, "connected", taglink.Connected.String())
}
