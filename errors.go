// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
)

// Error kinds returned by the account store, token verifier and request
// validation. Handlers pick the HTTP status with errors.Is, so every error
// crossing a component boundary should wrap one of these.
//
// Anything not wrapping a kind is unexpected and becomes a 500.
var (
	errValidation = errors.New("validation failed")
	errConflict   = errors.New("conflict")
	errNotFound   = errors.New("not found")
	errAuth       = errors.New("unauthorized")
)

// userError is an error whose message is safe to return to API callers.
type userError struct {
	kind error
	msg  string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.kind }

func newUserError(kind error, format string, args ...interface{}) error {
	return &userError{
		kind: kind,
		msg:  fmt.Sprintf(format, args...),
	}
}

func validationError(format string, args ...interface{}) error {
	return newUserError(errValidation, format, args...)
}
