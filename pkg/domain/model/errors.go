package model

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Every error returned by the engine wraps exactly one
// of these; callers match with errors.Is.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrInsufficientCapacity   = errors.New("insufficient capacity")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrTerminalState          = errors.New("terminal state")
	ErrEventClosed            = errors.New("event closed")

	ErrInvalidTriage = fmt.Errorf("invalid triage: %w", ErrValidation)
)

// Context keys for error values
const (
	EventIDKey        = "event_id"
	VictimIDKey       = "victim_id"
	ReservationIDKey  = "reservation_id"
	NotificationIDKey = "notification_id"
	InquiryIDKey      = "inquiry_id"
	CategoryKey       = "category"
	StatusKey         = "status"
	VersionKey        = "version"
	ExpectedKey       = "expected"
	ActualKey         = "actual"
)

// ErrorClass groups errors by what a client should do about them.
type ErrorClass string

const (
	// ErrorClassRejected means the request was refused; the user corrects it.
	ErrorClassRejected ErrorClass = "rejected"
	// ErrorClassRetry means re-read and try again.
	ErrorClassRetry ErrorClass = "retry"
	// ErrorClassInternal is anything outside the taxonomy.
	ErrorClassInternal ErrorClass = "internal"
)

// ClassifyError maps err onto the user-visible failure classes.
func ClassifyError(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrInsufficientCapacity):
		return ErrorClassRetry
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrTerminalState),
		errors.Is(err, ErrEventClosed):
		return ErrorClassRejected
	default:
		return ErrorClassInternal
	}
}

// IsDomainError reports whether err belongs to the taxonomy above.
func IsDomainError(err error) bool {
	c := ClassifyError(err)
	return c == ErrorClassRejected || c == ErrorClassRetry
}
