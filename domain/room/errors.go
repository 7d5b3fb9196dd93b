package room

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoomID indicates the room id failed validation.
	ErrInvalidRoomID = errors.New("invalid room id")
	// ErrInvalidUserName indicates the display name failed validation.
	ErrInvalidUserName = errors.New("invalid user name")
	// ErrInvalidTemplate indicates the template file selector failed validation.
	ErrInvalidTemplate = errors.New("invalid template file name")
	// ErrInvalidModel indicates the model name failed validation.
	ErrInvalidModel = errors.New("invalid model name")
	// ErrInvalidInstruction indicates the AI instruction was rejected.
	ErrInvalidInstruction = errors.New("invalid instruction")
	// ErrInvalidMessage indicates the chat text was rejected.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrProtocol indicates a malformed inbound payload.
	ErrProtocol = errors.New("malformed payload")
	// ErrEditInProgress indicates another edit holds the room's edit lock.
	ErrEditInProgress = errors.New("another edit is in progress")
	// ErrRoomUnavailable indicates the room could not be loaded from storage.
	ErrRoomUnavailable = errors.New("room unavailable")
	// ErrRateLimited indicates the member sent too many commands.
	ErrRateLimited = errors.New("rate limit exceeded, please slow down")
)

// ValidationError is a recoverable input rejection reported to the sender only.
type ValidationError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Invalid builds a ValidationError of the given kind.
func Invalid(kind error, field, reason string) error {
	return &ValidationError{Kind: kind, Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ExternalCallError is a failure of the generative text endpoint.
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}
