// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errs

import (
	"errors"
	"fmt"
)

// ChithiError is the typed error every package boundary returns.
type ChithiError struct {
	Code     ErrorCode
	Domain   Domain
	Message  string
	Details  string
	Metadata map[string]string
}

func (e *ChithiError) Error() string {
	msg := fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if stderr, ok := e.Metadata["stderr"]; ok && stderr != "" {
		msg += "\nCommand output: " + stderr
	}
	return msg
}

// WithMetadata attaches a key/value pair and returns the receiver for chaining.
func (e *ChithiError) WithMetadata(key, value string) *ChithiError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Is implements errors.Is by comparing (Code, Domain).
func (e *ChithiError) Is(target error) bool {
	t, ok := target.(*ChithiError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Domain == t.Domain
}

// New creates a ChithiError for code, with details appended to the stock message.
func New(code ErrorCode, details string) *ChithiError {
	domain, ok := errorDomain[code]
	if !ok {
		domain = DomainMisc
	}
	return &ChithiError{
		Code:    code,
		Domain:  domain,
		Message: errorMessage[code],
		Details: details,
	}
}

// Wrap converts err into a ChithiError under code, preserving metadata
// and recording the original (code, domain, message) if err was itself
// a ChithiError.
func Wrap(err error, code ErrorCode) *ChithiError {
	var ce *ChithiError
	if errors.As(err, &ce) {
		wrapped := New(code, ce.Details)
		for k, v := range ce.Metadata {
			wrapped.WithMetadata(k, v)
		}
		wrapped.WithMetadata("wrapped_code", fmt.Sprintf("%d", ce.Code))
		wrapped.WithMetadata("wrapped_domain", string(ce.Domain))
		wrapped.WithMetadata("wrapped_message", ce.Message)
		return wrapped
	}
	return New(code, err.Error())
}

// NewCommandError builds a ChithiError describing a failed subprocess,
// carrying its argv, exit code, and captured stderr so the operator sees
// the raw zfs/ssh message verbatim.
func NewCommandError(cmd string, exitCode int, stderr string) *ChithiError {
	return New(CommandExecution, "subprocess exited non-zero").
		WithMetadata("command", cmd).
		WithMetadata("exit_code", fmt.Sprintf("%d", exitCode)).
		WithMetadata("stderr", stderr)
}

// Code extracts the ErrorCode from err, if it is (or wraps) a ChithiError.
func Code(err error) (ErrorCode, bool) {
	var ce *ChithiError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}

// Is reports whether err is a ChithiError with the same (Code, Domain) as target.
func Is(err, target error) bool {
	var ce *ChithiError
	if !errors.As(err, &ce) {
		return false
	}
	var te *ChithiError
	if !errors.As(target, &te) {
		return false
	}
	return ce.Code == te.Code && ce.Domain == te.Domain
}
