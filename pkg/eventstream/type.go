package eventstream

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/state"
)

// EventType is used to identify what type of event is crossing the
// wire.
type EventType uint8

const (
	// EventTypeUnknown is used as a zero value to ensure that this
	// always has to be set to something.
	EventTypeUnknown EventType = iota

	// EventTypeError is pushed when a loop tears down its session.
	EventTypeError

	// EventTypePosition carries a freshly committed position.
	EventTypePosition

	// EventTypeSetpoint carries a setpoint accepted from the
	// command channel.
	EventTypeSetpoint

	// EventTypeLink is fired whenever a loop changes link state.
	EventTypeLink
)

// EventError contains the underlying error that occurred.
type EventError struct {
	Type  EventType
	Loop  string
	Error string
}

// EventVec carries a position or setpoint.
type EventVec struct {
	Type EventType
	X    float64
	Y    float64
	Z    float64
}

// EventLink carries the new link state of a loop.
type EventLink struct {
	Type  EventType
	Loop  string
	State string
}

// EventStream binds all the components of the event streaming server.
type EventStream struct {
	l hclog.Logger

	// backlog is how many events may queue for one client.
	backlog int

	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

// Publisher is what the bridge components need from a stream.  Both
// EventStream and NullStream satisfy it.
type Publisher interface {
	PublishPosition(state.Vec3)
	PublishSetpoint(state.Vec3)
	PublishLink(loop, linkState string)
	PublishError(loop string, err error)
}
