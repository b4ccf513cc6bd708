package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeConfig       ErrorCode = "CONFIG_ERROR"
	CodeResolution   ErrorCode = "RESOLUTION_ERROR"
	CodeInvariant    ErrorCode = "INVARIANT_VIOLATION"
	CodeIO           ErrorCode = "IO_ERROR"
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// DomainError is the only error kind surfaced to users of the obfuscator.
// Every fatal condition in a run is reported through it.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxAssembly  = "assembly"
	CtxOperation = "operation"
	CtxPhase     = "phase"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a context value, converting foreign errors into internal DomainErrors.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Inner returns the message and optional cause for user-facing output.
func Inner(err error) (string, error) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message, de.Err
	}
	return err.Error(), nil
}
