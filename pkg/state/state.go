// Package state holds the single record of drone position and
// commanded setpoint that the gateway's loops share.
package state

import (
	"sync"
)

// Vec3 is a point in the drone's coordinate frame, in meters.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// State guards the last known position and the desired setpoint
// behind one lock.  Values are only ever read or replaced whole, so
// a caller never observes coordinates from two different updates.
type State struct {
	mu sync.Mutex

	position Vec3
	setpoint Vec3
}

// New returns a State with a zero position and the given default
// setpoint.
func New(defaultSetpoint Vec3) *State {
	return &State{setpoint: defaultSetpoint}
}

// Position returns a copy of the last committed position.
func (s *State) Position() Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// SetPosition replaces the position.  Only the sync loop calls this.
func (s *State) SetPosition(p Vec3) {
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
}

// Setpoint returns a copy of the current setpoint.
func (s *State) Setpoint() Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setpoint
}

// SetSetpoint replaces the setpoint.  Only the command server calls
// this.
func (s *State) SetSetpoint(sp Vec3) {
	s.mu.Lock()
	s.setpoint = sp
	s.mu.Unlock()
}

// Snapshot returns both values from a single lock acquisition.
func (s *State) Snapshot() (position, setpoint Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.setpoint
}
