package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sda-platform/dronebridge/pkg/metrics"
	"github.com/sda-platform/dronebridge/pkg/state"
	"github.com/sda-platform/dronebridge/pkg/taglink"
)

type fakeLink struct{}

func (fakeLink) State() taglink.LinkState { return taglink.Connected }
func (fakeLink) Stale() bool              { return false }

func TestStateEndpoint(t *testing.T) {
	st := state.New(state.Vec3{Z: 1})
	st.SetPosition(state.Vec3{X: 3, Y: -1, Z: 0.8})

	s, err := NewServer(WithState(st), WithLink(fakeLink{}))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, Status{
		Position: state.Vec3{X: 3, Y: -1, Z: 0.8},
		Setpoint: state.Vec3{Z: 1},
		Link:     "connected",
	}, got)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.Position(state.Vec3{X: 2})

	s, err := NewServer(WithState(state.New(state.Vec3{})), WithPrometheusRegistry(m.Registry()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "dronebridge_drone_position_meters"))
}

func TestStateRequired(t *testing.T) {
	_, err := NewServer()
	assert.Error(t, err)
}
