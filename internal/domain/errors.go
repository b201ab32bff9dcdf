package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable class of an engine error.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindExternalService Kind = "external_service"
	KindNoCandidates    Kind = "no_candidates"
	KindComputation     Kind = "computation"
	KindConflict        Kind = "conflict"
)

// Terminal outcomes of a shipment evaluation.
var (
	ErrNoCandidates     = errors.New("no_candidates")
	ErrRouteUnavailable = errors.New("route_unavailable")
	ErrNoCoordinates    = errors.New("no_coordinates")
)

// Error carries a Kind alongside the usual wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error without a wrapped cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
// Errors that carry no Kind are reported as computation faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindComputation
}
