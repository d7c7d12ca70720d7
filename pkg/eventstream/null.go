package eventstream

import (
	"github.com/sda-platform/dronebridge/pkg/state"
)

// NullStream doesn't publish events anywhere and is mostly for
// testing or processes without a status server.
type NullStream struct{}

// NewNullStreamer hands back a null stream instance that discards
// everything.
func NewNullStreamer() *NullStream {
	return new(NullStream)
}

// PublishPosition discards the position.
func (ns *NullStream) PublishPosition(_ state.Vec3) {}

// PublishSetpoint discards the setpoint.
func (ns *NullStream) PublishSetpoint(_ state.Vec3) {}

// PublishLink discards the link state.
func (ns *NullStream) PublishLink(_, _ string) {}

// PublishError discards all errors.
func (ns *NullStream) PublishError(_ string, _ error) {}
