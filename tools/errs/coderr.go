package errs

import (
	"errors"
	"fmt"
)

// Error codes surfaced on the live protocol and the REST surface.
const (
	CodeNotRegistered      = 1001 // send attempted without a bound identity
	CodePersistenceFailure = 1002 // durable-store write failed during message creation
	CodeFanoutFailure      = 1003 // notification batch insert or push failed after a send
	CodeUnauthorized       = 1004 // REST call without a valid session token
	CodeBadRequest         = 1005
)

var (
	ErrNotRegistered      = NewCodeError(CodeNotRegistered, "connection has no registered identity")
	ErrPersistenceFailure = NewCodeError(CodePersistenceFailure, "message could not be persisted")
	ErrFanoutFailure      = NewCodeError(CodeFanoutFailure, "notification fan-out failed")
	ErrUnauthorized       = NewCodeError(CodeUnauthorized, "unauthorized")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Detail)
}

// WithDetail returns a copy carrying extra context; the receiver is unchanged
// so the package-level sentinels stay clean.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Code extracts the error code, or 0 for non-coded errors.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// Is makes sentinels match their detailed copies via errors.Is.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if errors.As(target, &ce) {
		return ce.Code == e.Code
	}
	return false
}
