package taglink

import (
	"errors"
	"fmt"
	"strings"
)

// BindingError reports that the expected container or tags were not
// present on an otherwise working endpoint.  It is a configuration
// problem rather than a transient one, but the loops still retry
// since the remote server may be restarting.
type BindingError struct {
	Container string
	Missing   []string
	Found     []string
}

func (e *BindingError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("container %q not found", e.Container)
	}
	return fmt.Sprintf("container %q is missing tags [%s]; found [%s]",
		e.Container,
		strings.Join(e.Missing, ", "),
		strings.Join(e.Found, ", "),
	)
}

// TransportError wraps any failure talking to the endpoint: refused
// connections, failed reads or writes, dropped sessions.
type TransportError struct {
	Op  string
	Tag string
	Err error
}

func (e *TransportError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsBinding reports whether err is or wraps a BindingError.
func IsBinding(err error) bool {
	var be *BindingError
	return errors.As(err, &be)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Kind names the error class for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsBinding(err):
		return "binding"
	default:
		return "transport"
	}
}

func transport(op, tag string, err error) error {
	if IsBinding(err) || IsTransport(err) {
		return err
	}
	return &TransportError{Op: op, Tag: tag, Err: err}
}
