package turnstile

import (
	"errors"
	"strings"
)

// Failure kinds.  Every error returned by Verify matches exactly one of
// these with errors.Is.
var (
	ErrMissingToken            = errors.New("turnstile: missing token")
	ErrProviderMisconfigured   = errors.New("turnstile: provider misconfigured")
	ErrInvalidToken            = errors.New("turnstile: invalid token")
	ErrTimeoutOrDuplicate      = errors.New("turnstile: timeout or duplicate")
	ErrVerificationFailed      = errors.New("turnstile: verification failed")
	ErrVerificationUnavailable = errors.New("turnstile: verification unavailable")
)

// User-facing messages.
const (
	MsgRequired      = "Please complete the CAPTCHA."
	MsgNotConfigured = "Turnstile is not properly configured."
	MsgConfigError   = "Turnstile configuration error."
	MsgInvalid       = "Invalid CAPTCHA response."
	MsgTimeoutOrDup  = "CAPTCHA timeout or duplicate."
	MsgFailed        = "CAPTCHA verification failed."
	MsgUnavailable   = "Unable to verify CAPTCHA. Please try again."
)

// Error carries the failure kind, any provider error codes, and the
// message shown next to the form field.
type Error struct {
	Kind    error
	Codes   []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	s := e.Kind.Error()
	if len(e.Codes) > 0 {
		s += " [" + strings.Join(e.Codes, ",") + "]"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is matches the failure kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text rendered on the form.
func (e *Error) UserMessage() string { return e.Message }

// provider error codes with a dedicated kind, in precedence order.
var codeKinds = []struct {
	code string
	kind error
	msg  string
}{
	{"missing-input-secret", ErrProviderMisconfigured, MsgConfigError},
	{"invalid-input-response", ErrInvalidToken, MsgInvalid},
	{"timeout-or-duplicate", ErrTimeoutOrDuplicate, MsgTimeoutOrDup},
}

// classify maps a failed response's error codes onto a kind.
func classify(codes []string) *Error {
	for _, ck := range codeKinds {
		for _, c := range codes {
			if c == ck.code {
				return &Error{Kind: ck.kind, Codes: codes, Message: ck.msg}
			}
		}
	}
	return &Error{Kind: ErrVerificationFailed, Codes: codes, Message: MsgFailed}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrProviderMisconfigured):
		return "misconfigured"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrTimeoutOrDuplicate):
		return "timeout_or_duplicate"
	case errors.Is(err, ErrVerificationUnavailable):
		return "unavailable"
	default:
		return "failed"
	}
}
