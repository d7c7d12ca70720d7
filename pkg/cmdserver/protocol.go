package cmdserver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sda-platform/dronebridge/pkg/state"
)

// ErrorResponse is sent in place of a position when a request cannot
// be parsed.
const ErrorResponse = "Erro: Formato invalido."

// decimal is the accepted form of one coordinate: an optional minus
// sign, digits, and an optional fractional part.
var decimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ErrMalformed is the root of every ProtocolError.
var ErrMalformed = errors.New("malformed command")

// ProtocolError describes a request that was not a valid setpoint.
type ProtocolError struct {
	Payload string
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformed, e.Payload, e.Reason)
}

// Is makes every ProtocolError match ErrMalformed.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrMalformed
}

// ParseCommand decodes an "x,y,z" request.  Surrounding whitespace
// is ignored, and so is whitespace around each field.  Each field must
// be a plain decimal; exponents, hex floats and named values such as
// NaN are rejected.
func ParseCommand(payload string) (state.Vec3, error) {
	fields := strings.Split(strings.TrimSpace(payload), ",")
	if len(fields) != 3 {
		return state.Vec3{}, &ProtocolError{Payload: payload, Reason: fmt.Sprintf("want 3 fields, got %d", len(fields))}
	}

	var v [3]float64
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if !decimal.MatchString(f) {
			return state.Vec3{}, &ProtocolError{Payload: payload, Reason: fmt.Sprintf("field %d is not a decimal number", i+1)}
		}
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return state.Vec3{}, &ProtocolError{Payload: payload, Reason: fmt.Sprintf("field %d is out of range", i+1)}
		}
		v[i] = n
	}
	return state.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// FormatPosition encodes a position for the wire with three decimals
// per axis.
func FormatPosition(p state.Vec3) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", p.X, p.Y, p.Z)
}
