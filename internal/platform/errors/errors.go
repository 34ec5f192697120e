package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig    Kind = "config"
	KindDomain    Kind = "domain"
	KindVoice     Kind = "voice"
	KindTransport Kind = "transport"
	KindPlatform  Kind = "platform"
	KindBootstrap Kind = "bootstrap"
	KindStorage   Kind = "storage"
	KindUnknown   Kind = "unknown"
)

// Code identifies a stable, user-visible failure class inside a kind.
// The voice codes below drive spoken feedback selection and must not be
// renamed once shipped.
type Code string

const (
	CodeNone                  Code = ""
	CodeCapabilityUnavailable Code = "capability_unavailable"
	CodePermissionDenied      Code = "permission_denied"
	CodeSessionBusy           Code = "session_busy"
	CodeNoSpeechDetected      Code = "no_speech_detected"
	CodeRecognitionFailure    Code = "recognition_failure"
	CodeEmergencyTimeout      Code = "emergency_timeout"
	CodeRequestCreation       Code = "request_creation_failure"
)

type Error struct {
	Kind    Kind
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// NewCode builds a voice-kind error carrying a stable code.
func NewCode(code Code, op, message string) *Error {
	return &Error{
		Kind:    KindVoice,
		Code:    code,
		Op:      op,
		Message: message,
	}
}

// WrapCode attaches a code while wrapping a cause. Unlike Wrap it does not
// short-circuit on an already-typed cause, because the code of the outer
// failure is what callers dispatch on.
func WrapCode(code Code, op, message string, err error) *Error {
	return &Error{
		Kind:    KindVoice,
		Code:    code,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// CodeOf returns the first code found in the chain, or CodeNone.
func CodeOf(err error) Code {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			if target.Code != CodeNone {
				return target.Code
			}
			err = target.Cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return CodeNone
}

// IsCode reports whether the chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
