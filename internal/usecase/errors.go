package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorTerminated   ErrorCode = "CONVERSATION_TERMINATED"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is returned by every exported usecase operation. Reason is a stable
// machine token for logs; Message is safe to show to the participant.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func invalidInput(reason, message string) *Error {
	return &Error{Code: ErrorInvalidInput, Reason: reason, Message: message}
}
