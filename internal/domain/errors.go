package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by dataset and assistant operations.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFetch
	KindValidation
	KindNotFound
	KindStaleTransition
	KindUpload
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch error"
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindStaleTransition:
		return "stale transition"
	case KindUpload:
		return "upload error"
	case KindService:
		return "service error"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned at the mutation boundary.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "delete"
	ID   string // dataset id, when one is involved
	Err  error  // underlying cause, may be nil
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrFetch           = &Error{Kind: KindFetch}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrStaleTransition = &Error{Kind: KindStaleTransition}
	ErrUpload          = &Error{Kind: KindUpload}
	ErrService         = &Error{Kind: KindService}
)

// NewError builds an *Error.
func NewError(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Op != "" && e.ID != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.ID == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var userMessages = map[Kind]string{
	KindFetch:           "Failed to load datasets. Please try again later.",
	KindValidation:      "The file is missing a name or is empty. Please choose another file.",
	KindNotFound:        "Dataset not found",
	KindStaleTransition: "The dataset has already finished processing or was removed.",
	KindUpload:          "Failed to upload dataset. Please try again.",
	KindService:         "Sorry, I encountered an error processing your request. Please try again.",
}

// UserMessage returns a short message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
