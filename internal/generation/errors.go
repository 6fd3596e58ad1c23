package generation

import (
	"errors"
	"strings"
)

// FallbackMessage is shown when a failure carries no usable message.
const FallbackMessage = "Failed to architect the curriculum. Please try again."

// ErrMissingCredential is returned by every call when no API key is configured.
var ErrMissingCredential = errors.New("generation API key is not configured")

// Kind classifies a generation failure. Every kind is presented to the user
// the same way; the distinction exists for logs.
type Kind string

const (
	KindTransport         Kind = "transport"
	KindMalformedResponse Kind = "malformed_response"
	KindMissingCredential Kind = "missing_credential"
)

// Error is the failure produced by Client.Generate.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return FallbackMessage
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, defaulting to KindTransport.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) && ge.Kind != "" {
		return ge.Kind
	}
	return KindTransport
}

// UserMessage returns the one-line message shown for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		if msg := strings.TrimSpace(ge.Message); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}

func callError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	kind := KindTransport
	if errors.Is(err, ErrMissingCredential) {
		kind = KindMissingCredential
	}
	return &Error{Kind: kind, Message: strings.TrimSpace(err.Error()), Err: err}
}
