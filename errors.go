// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures. Construction-time kinds mean the request can
// never succeed; invocation-time kinds mean it failed this time.
type ErrorKind string

const (
	KindUnsupportedInput ErrorKind = "unsupported_input"
	KindFileNotFound     ErrorKind = "file_not_found"
	KindIO               ErrorKind = "io_error"
	KindExtraction       ErrorKind = "extraction_error"
)

var (
	ErrUnsupportedInput = errors.New("unsupported input type")
	ErrFileNotFound     = errors.New("file not found")
	ErrIO               = errors.New("i/o error")
	ErrExtraction       = errors.New("extraction failed")
)

// Error is returned by every exported operation in this package.
type Error struct {
	Op    string    // "new", "fetch", "read", "extract"
	Kind  ErrorKind // failure class
	Input string    // offending path, URI or type description
	Err   error     // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("xtract %s: %s", e.Op, e.sentinel())
	if e.Input != "" {
		msg += fmt.Sprintf(" (%s)", e.Input)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindUnsupportedInput:
		return ErrUnsupportedInput
	case KindFileNotFound:
		return ErrFileNotFound
	case KindIO:
		return ErrIO
	default:
		return ErrExtraction
	}
}

func newError(op string, kind ErrorKind, input string, err error) *Error {
	return &Error{Op: op, Kind: kind, Input: input, Err: err}
}

// KindOf returns the ErrorKind of err, or "" if err did not come from here.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConstructionError reports whether err rejects the input itself.
func IsConstructionError(err error) bool {
	k := KindOf(err)
	return k == KindUnsupportedInput || k == KindFileNotFound
}

// IsInvocationError reports whether err happened while fetching, reading or
// extracting an otherwise valid source.
func IsInvocationError(err error) bool {
	k := KindOf(err)
	return k == KindIO || k == KindExtraction
}
