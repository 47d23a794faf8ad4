package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// KindParse marks a malformed source document. Fatal: the run aborts.
	KindParse Kind = "parse"
	// KindRetrieval marks a failed consistency-context retrieval. Non-fatal:
	// the run continues with an empty context.
	KindRetrieval  Kind = "retrieval"
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindBadRequest Kind = "bad_request"
	// KindShape marks a model response whose unit ids do not match the request
	// (missing, duplicated, or hallucinated ids, or a count mismatch).
	KindShape Kind = "shape"
	// KindExhausted marks a batch that failed all retry attempts. Non-fatal at
	// document level: its units pass through untranslated.
	KindExhausted Kind = "exhausted"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindParse:
		return "Source document is malformed."
	case KindRetrieval:
		return "Consistency retrieval failed."
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindShape:
		return "Model response did not match the requested unit ids."
	case KindBadRequest:
		return "Request rejected by upstream API."
	case KindExhausted:
		return "Batch failed all retry attempts."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Parse(safeMessage string, cause error) error {
	return New(KindParse, safeMessage, cause)
}

func Retrieval(err error) error {
	return New(KindRetrieval, "", err)
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func Shape(err error) error {
	return New(KindShape, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func Exhausted(err error) error {
	return New(KindExhausted, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	// Transient: server errors, network issues.
	// RateLimit: API rate limiting.
	// Shape: LLM output is non-deterministic, so a stricter re-prompt may succeed.
	return e.Kind == KindTransient || e.Kind == KindRateLimit || e.Kind == KindShape
}

func IsRateLimit(err error) bool {
	return Is(err, KindRateLimit)
}

func IsShape(err error) bool {
	return Is(err, KindShape)
}

func IsParse(err error) bool {
	return Is(err, KindParse)
}
