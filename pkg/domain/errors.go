package domain

import (
	"errors"
	"fmt"
)

// Local error kinds. These never reach the network; callers return to the
// editing state and show a message.
var (
	// ErrSlotsExhausted is returned when a collection has no empty slot left.
	ErrSlotsExhausted = errors.New("no available slots")
	// ErrSlotNotFound indicates a slot name outside the registry table.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrEmptyRequiredField is returned when a required text field is blank.
	ErrEmptyRequiredField = errors.New("required field is empty")
	// ErrParseFailure is returned when composite, enumerated, date or numeric
	// input cannot be encoded.
	ErrParseFailure = errors.New("malformed field value")
	// ErrCapacityReached is returned when the tier's occupied-slot limit is hit
	// even though the table still has empty slots.
	ErrCapacityReached = errors.New("capacity reached for tier")
)

// TransportError wraps a failure of the request/response transport itself
// (connection refused, timeout, cancelled context).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerRejectedError reports a well-formed response that indicates failure.
type ServerRejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by server (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s rejected by server (status %d): %s", e.Op, e.Status, e.Message)
}

// IsLocal reports whether err is one of the local error kinds that must be
// handled without touching the network.
func IsLocal(err error) bool {
	switch {
	case errors.Is(err, ErrSlotsExhausted),
		errors.Is(err, ErrEmptyRequiredField),
		errors.Is(err, ErrParseFailure),
		errors.Is(err, ErrCapacityReached),
		errors.Is(err, ErrSlotNotFound):
		return true
	default:
		return false
	}
}

// IsRemote reports whether err came from the transport or the server.
func IsRemote(err error) bool {
	var te *TransportError
	var se *ServerRejectedError
	return errors.As(err, &te) || errors.As(err, &se)
}

// UserMessage renders the message shown to the user for a failed action.
func UserMessage(err error) string {
	var se *ServerRejectedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSlotsExhausted):
		return "No available slots."
	case errors.Is(err, ErrCapacityReached):
		return "Your plan's limit has been reached."
	case errors.Is(err, ErrEmptyRequiredField):
		return "This field cannot be empty."
	case errors.Is(err, ErrParseFailure):
		return "Please check the value you entered."
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case IsRemote(err):
		return "Failed to update. Please try again."
	default:
		return "An error occurred."
	}
}
