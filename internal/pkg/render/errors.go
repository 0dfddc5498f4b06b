package render

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a terminal render failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindLaunchFailed
	KindNavigationTimeout
	KindNavigationFailed
	KindRenderTimeout
)

func (k Kind) String() string {
	switch k {
	case KindLaunchFailed:
		return "launch_failed"
	case KindNavigationTimeout:
		return "navigation_timeout"
	case KindNavigationFailed:
		return "navigation_failed"
	case KindRenderTimeout:
		return "render_timeout"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by the render engines.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify tags err with onTimeout when it came from an expired deadline and
// with otherwise in every other case.
func classify(op string, err error, onTimeout, otherwise Kind) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errTimeout) {
		return newError(onTimeout, op, err)
	}
	return newError(otherwise, op, err)
}

var errTimeout = errors.New("timed out")
