package eventstream

import (
	"encoding/json"

	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/state"
)

// New returns an event stream with no subscribers.
func New(l hclog.Logger) *EventStream {
	return &EventStream{
		l:        l.Named("eventstream"),
		backlog:  16,
		watchers: make(map[*watcher]struct{}),
	}
}

// PublishPosition pushes a committed position into the event stream.
func (es *EventStream) PublishPosition(p state.Vec3) {
	es.publishJSON(EventVec{Type: EventTypePosition, X: p.X, Y: p.Y, Z: p.Z})
}

// PublishSetpoint pushes an accepted setpoint into the event stream.
func (es *EventStream) PublishSetpoint(sp state.Vec3) {
	es.publishJSON(EventVec{Type: EventTypeSetpoint, X: sp.X, Y: sp.Y, Z: sp.Z})
}

// PublishLink pushes a link state change into the event stream.
func (es *EventStream) PublishLink(loop, linkState string) {
	es.publishJSON(EventLink{Type: EventTypeLink, Loop: loop, State: linkState})
}

// PublishError pushes a loop failure into the event stream.
func (es *EventStream) PublishError(loop string, err error) {
	es.publishJSON(EventError{Type: EventTypeError, Loop: loop, Error: err.Error()})
}

func (es *EventStream) publishJSON(e any) {
	bytes, err := json.Marshal(e)
	if err != nil {
		es.l.Warn("Error marshaling event", "error", err)
		return
	}
	es.broadcast(bytes)
}
