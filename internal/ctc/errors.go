package ctc

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the ways a decode call can fail.
type ErrorKind int

const (
	// KindInvalidInput means the matrix, alphabet or options were rejected before decoding.
	KindInvalidInput ErrorKind = iota + 1
	// KindBeamExhausted means pruning left no hypothesis at some timestep.
	KindBeamExhausted
	// KindIncomparableValues means two hypothesis probabilities could not be ordered (NaN).
	KindIncomparableValues
)

// Sentinel errors matched by errors.Is against a *DecodeError.
var (
	ErrInvalidInput       = errors.New("invalid decoder input")
	ErrBeamExhausted      = errors.New("ran out of search space (beam cut-off too high)")
	ErrIncomparableValues = errors.New("failed to compare values (NaNs in input?)")
)

// String returns the stable, snake_case name of the kind. It is used as the
// error_type field in API responses and as a metrics label.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindBeamExhausted:
		return "beam_exhausted"
	case KindIncomparableValues:
		return "incomparable_values"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindBeamExhausted:
		return ErrBeamExhausted
	case KindIncomparableValues:
		return ErrIncomparableValues
	default:
		return nil
	}
}

// DecodeError reports why a decode call failed. Timestep is the matrix row being
// processed when the failure happened, or -1 when input validation failed.
type DecodeError struct {
	Kind     ErrorKind
	Timestep int
	Msg      string
}

func (e *DecodeError) Error() string {
	base := e.Kind.sentinel()
	if base == nil {
		base = errors.New(e.Kind.String())
	}
	switch {
	case e.Timestep >= 0 && e.Msg != "":
		return fmt.Sprintf("%v at timestep %d: %s", base, e.Timestep, e.Msg)
	case e.Timestep >= 0:
		return fmt.Sprintf("%v at timestep %d", base, e.Timestep)
	case e.Msg != "":
		return fmt.Sprintf("%v: %s", base, e.Msg)
	default:
		return base.Error()
	}
}

// Unwrap exposes the sentinel for the error kind.
func (e *DecodeError) Unwrap() error { return e.Kind.sentinel() }

func invalidInput(format string, args ...any) error {
	return &DecodeError{Kind: KindInvalidInput, Timestep: -1, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a decode failure wrapped anywhere in err's chain,
// or 0 when err is not a decode failure.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
