// internal/app/governance/errors.go
package governance

import (
	"errors"
	"fmt"
)

// Code is the stable, machine-readable identifier of a rejected operation.
type Code string

const (
	CodeAlreadyVoted        Code = "already_voted"
	CodeInvalidTarget       Code = "invalid_target"
	CodeGovernanceViolation Code = "governance_violation"
	CodeNotAuthorized       Code = "not_authorized"
	CodeNotFound            Code = "not_found"
	CodeInvalidOperation    Code = "invalid_operation"
	CodeExecutionFailed     Code = "execution_failed"
)

// Error is a user-visible governance failure. Reason is suitable for direct
// display; Hint, when set, tells the caller how to remediate.
type Error struct {
	Code   Code
	Reason string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a sentinel of the same code, so errors.Is(err, ErrAlreadyVoted)
// holds for every already-voted failure regardless of its reason.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Reason == ""
}

// Sentinels for errors.Is.
var (
	ErrAlreadyVoted        = &Error{Code: CodeAlreadyVoted}
	ErrInvalidTarget       = &Error{Code: CodeInvalidTarget}
	ErrGovernanceViolation = &Error{Code: CodeGovernanceViolation}
	ErrNotAuthorized       = &Error{Code: CodeNotAuthorized}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidOperation    = &Error{Code: CodeInvalidOperation}
	ErrExecutionFailed     = &Error{Code: CodeExecutionFailed}
)

// HintPromote is the remediation attached to governance violations.
const HintPromote = "Promote a member to manager to restore the minimum of two managers."

func newErr(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func alreadyVoted(what string) error {
	return newErr(CodeAlreadyVoted, "You have already voted on this %s.", what)
}

func invalidTarget(format string, args ...any) error {
	return newErr(CodeInvalidTarget, format, args...)
}

func notAuthorized(format string, args ...any) error {
	return newErr(CodeNotAuthorized, format, args...)
}

func notFound(format string, args ...any) error {
	return newErr(CodeNotFound, format, args...)
}

func invalidOperation(format string, args ...any) error {
	return newErr(CodeInvalidOperation, format, args...)
}

func governanceViolation(reason string) error {
	return &Error{Code: CodeGovernanceViolation, Reason: reason, Hint: HintPromote}
}

func executionFailed(cause error) error {
	return &Error{
		Code:   CodeExecutionFailed,
		Reason: "The decision was approved but its effect could not be applied: " + cause.Error(),
		Hint:   "A manager can retry the execution once the cause is fixed.",
		Err:    cause,
	}
}

// CodeOf returns the governance code carried by err, or "" for any other error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// effectError marks a failure raised while applying a proposal's effect, as
// opposed to a failure persisting the proposal itself.
type effectError struct{ err error }

func (e effectError) Error() string { return e.err.Error() }
func (e effectError) Unwrap() error { return e.err }
