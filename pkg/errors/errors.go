package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted indicates that Run was invoked more than once on the same engine
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrDuplicateInput indicates that two stations declared the same input name
	ErrDuplicateInput = errors.New("duplicate input name")

	// ErrUnknownOutput indicates that an output name does not resolve to a declared station
	ErrUnknownOutput = errors.New("output name does not resolve to a station")

	// ErrArityMismatch indicates that a produced tuple's length does not match the station's output names
	ErrArityMismatch = errors.New("tuple arity does not match output names")

	// ErrNilProducer indicates that a station was declared without a producer
	ErrNilProducer = errors.New("station has no producer")

	// ErrNoStations indicates that the engine was constructed with an empty station map
	ErrNoStations = errors.New("no stations declared")
)

// Error codes classifying engine failures
const (
	// CodeConfiguration marks errors detected while building the station graph
	CodeConfiguration = "CONFIGURATION"

	// CodeRerun marks a second Run attempt on a started engine
	CodeRerun = "RERUN"

	// CodeRouting marks failures routing produced tuples to downstream stations
	CodeRouting = "ROUTING"

	// CodeProcessing marks errors raised by a producer while transforming an item
	CodeProcessing = "PROCESSING"
)

// Error represents a structured engine error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new engine error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError creates an error for invalid station declarations
func NewConfigurationError(message string, err error) *Error {
	return NewError(CodeConfiguration, message, err)
}

// NewRerunError creates an error for a repeated Run attempt
func NewRerunError(message string) *Error {
	return NewError(CodeRerun, message, ErrAlreadyStarted)
}

// NewRoutingError creates an error for a failed tuple routing
func NewRoutingError(message string, err error) *Error {
	return NewError(CodeRouting, message, err)
}

// NewProcessingError creates an error for a failed producer invocation
func NewProcessingError(message string, err error) *Error {
	return NewError(CodeProcessing, message, err)
}

// IsConfiguration checks if an error was raised while building the graph
func IsConfiguration(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsRerun checks if an error is a repeated-run error
func IsRerun(err error) bool {
	return errors.Is(err, ErrAlreadyStarted)
}

// IsRouting checks if an error was raised while routing produced tuples
func IsRouting(err error) bool {
	return hasCode(err, CodeRouting)
}

// IsProcessing checks if an error was raised by a producer
func IsProcessing(err error) bool {
	return hasCode(err, CodeProcessing)
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
