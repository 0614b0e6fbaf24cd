package contract

import (
	"errors"
	"fmt"

	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")

	ErrNotFound          = recordx.ErrNotFound
	ErrReferential       = recordx.ErrReferential
	ErrValidation        = recordx.ErrValidation
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrRemoteUnreachable = errors.New("remote unreachable")
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrInternal          = errors.New("internal error")
)

// ErrorKind is the wire name of an error class.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindReferential       ErrorKind = "referential"
	KindValidation        ErrorKind = "validation"
	KindUnknownOperation  ErrorKind = "unknown_operation"
	KindRemoteUnreachable ErrorKind = "remote_unreachable"
	KindMissingIdentifier ErrorKind = "missing_identifier"
	KindInternal          ErrorKind = "internal"
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindNotFound, ErrNotFound},
	{KindReferential, ErrReferential},
	{KindValidation, ErrValidation},
	{KindUnknownOperation, ErrUnknownOperation},
	{KindRemoteUnreachable, ErrRemoteUnreachable},
	{KindMissingIdentifier, ErrMissingIdentifier},
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindInternal
}

// ErrorFromKind rebuilds an error received over the wire so callers can keep
// using errors.Is against the sentinels above.
func ErrorFromKind(kind ErrorKind, msg string) error {
	for _, ks := range kindSentinels {
		if ks.kind == kind {
			return &kindError{sentinel: ks.err, msg: msg}
		}
	}
	return &kindError{sentinel: ErrInternal, msg: msg}
}

type kindError struct {
	sentinel error
	msg      string
}

func (e *kindError) Error() string {
	if e.msg == "" {
		return e.sentinel.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.sentinel
}

// StepError describes why a delegated step could not be completed.
func StepError(what string, cause error) error {
	return fmt.Errorf("could not complete %s because %w", what, cause)
}
