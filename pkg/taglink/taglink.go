// Package taglink describes the capability the bridges need from an
// industrial tag server: open a session, find a container of tags,
// and read or write individual values.  Drivers live in the
// subpackages; the bridges only ever see these interfaces.
package taglink

import (
	"context"
	"errors"
)

// ErrNotFound is returned (possibly wrapped) by drivers when a
// container or tag does not exist.
var ErrNotFound = errors.New("not found")

// A Dialer opens sessions against one tag endpoint.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// A Session is a live connection to a tag endpoint.  It is owned by
// exactly one loop and is discarded after any I/O failure.
type Session interface {
	// Lookup resolves a container directly beneath the root by
	// namespace and exact name.
	Lookup(ctx context.Context, namespace, name string) (Container, error)

	// Containers lists every container beneath the root.
	Containers(ctx context.Context) ([]Container, error)

	Close(ctx context.Context) error
}

// A Container groups tags.
type Container interface {
	Name() string

	// Tag resolves one child by namespace and exact name.
	Tag(ctx context.Context, namespace, name string) (Tag, error)

	// Tags lists every child tag.
	Tags(ctx context.Context) ([]Tag, error)
}

// A Tag is a single addressable value.
type Tag interface {
	Name() string
	Read(ctx context.Context) (float64, error)
	Write(ctx context.Context, v float64) error
}

// LinkState is the state of a loop's connection to its tag endpoint.
type LinkState int

const (
	// Disconnected is the initial state, and the state after any
	// failure.
	Disconnected LinkState = iota

	// Connected means the session is open and all tags are bound.
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
