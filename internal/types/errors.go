package types

import (
	"errors"
	"fmt"
)

// RangeError reports a channel index or value outside its valid interval.
type RangeError struct {
	What  string // "channel", "value", "address"
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	if e.What == "value" && e.Min == 0 && e.Max == 1 {
		return fmt.Sprintf("value %d not in {0, 1}", e.Value)
	}
	return fmt.Sprintf("%s %d out of range [%d..%d]", e.What, e.Value, e.Min, e.Max)
}

// CheckRange returns a *RangeError unless min <= value <= max.
func CheckRange(what string, value, min, max int) error {
	if value < min || value > max {
		return &RangeError{What: what, Value: value, Min: min, Max: max}
	}
	return nil
}

// UnsupportedValueError reports an enumeration value that is not accepted.
type UnsupportedValueError struct {
	What  string
	Value string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("requested %s not supported: %q", e.What, e.Value)
}

// UnsupportedOperationError reports an operation the device cannot perform
// in its current configuration.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s not supported: %s", e.Op, e.Reason)
}

// TransportError wraps a failure of the register transport.
type TransportError struct {
	Op       string // "read" or "write"
	Bus      string
	Addr     uint16
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s addr=0x%02X reg=0x%02X: %v", e.Bus, e.Op, e.Addr, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrNotFound is returned when a device or route does not exist.
var ErrNotFound = errors.New("not found")

// Error codes used in ErrorResponse payloads.
const (
	CodeRange                = "RANGE"
	CodeUnsupportedValue     = "UNSUPPORTED_VALUE"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeTransport            = "TRANSPORT"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL"
)

// ErrorCode classifies err into one of the Code* constants.
func ErrorCode(err error) string {
	var (
		rangeErr *RangeError
		valueErr *UnsupportedValueError
		opErr    *UnsupportedOperationError
		trErr    *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rangeErr):
		return CodeRange
	case errors.As(err, &valueErr):
		return CodeUnsupportedValue
	case errors.As(err, &opErr):
		return CodeUnsupportedOperation
	case errors.As(err, &trErr):
		return CodeTransport
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
