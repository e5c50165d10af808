package weather

import (
	"errors"
	"fmt"
)

// Kind classifies a weather lookup failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindAmbiguousMatch      Kind = "ambiguous_match"
	KindUpstreamFormat      Kind = "upstream_format"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInvalidSample       Kind = "invalid_sample"
	KindPermissionDenied    Kind = "permission_denied"
	KindPositionUnavailable Kind = "position_unavailable"
	KindTimeout             Kind = "timeout"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAmbiguousMatch      = &Error{Kind: KindAmbiguousMatch}
	ErrUpstreamFormat      = &Error{Kind: KindUpstreamFormat}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrInvalidSample       = &Error{Kind: KindInvalidSample}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrPositionUnavailable = &Error{Kind: KindPositionUnavailable}
	ErrTimeout             = &Error{Kind: KindTimeout}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" when err is not a weather error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message is the user-facing text for a failed action.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An unexpected error occurred"
	}
	switch e.Kind {
	case KindInvalidInput:
		return e.Msg
	case KindNotFound:
		return fmt.Sprintf("No location found: %s", e.Msg)
	case KindAmbiguousMatch:
		return fmt.Sprintf("Location did not match the search: %s", e.Msg)
	case KindUpstreamFormat:
		return "The weather service returned an unexpected response"
	case KindUpstreamUnavailable:
		return "The weather service is unavailable, try again"
	case KindInvalidSample:
		return "The forecast data could not be read"
	case KindPermissionDenied:
		return "Geolocation request denied. Please reset location permission to grant access again."
	case KindPositionUnavailable:
		return "Your position is not available"
	case KindTimeout:
		return "Locating your position timed out"
	}
	return e.Error()
}
