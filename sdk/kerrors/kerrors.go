// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package kerrors defines the error taxonomy shared by every layer of the
// SDK. Callers are expected to discriminate with errors.As.
package kerrors

import "fmt"

// ValidationError reports a malformed resource reference.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnsupportedEnvironmentError reports that no resolver in a chain claimed
// support for the current environment.
type UnsupportedEnvironmentError struct {
	Message string
}

func (e *UnsupportedEnvironmentError) Error() string { return e.Message }

// UnauthenticatedError reports missing or rejected credentials.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string {
	if e.Message == "" {
		return "user is not authenticated"
	}
	return e.Message
}

// NewUnauthenticatedError builds the user-facing permission message for a
// resource URL.
func NewUnauthenticatedError(resourceURL string) *UnauthenticatedError {
	return &UnauthenticatedError{
		Message: fmt.Sprintf("you don't have permission to access resource at URL: %s\n"+
			"Please make sure you are authenticated if you are trying to access a private "+
			"resource or a resource requiring consent", resourceURL),
	}
}

// NotFoundError reports that the remote store has no resource for the
// requested identifiers, or that an expected local mount is missing.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NewNotFoundError builds the user-facing message for a resource URL.
func NewNotFoundError(resourceURL string) *NotFoundError {
	return &NotFoundError{
		Message: fmt.Sprintf("resource not found at URL: %s\n"+
			"Please make sure you specified the correct resource identifiers", resourceURL),
	}
}

// BackendError carries the server-supplied message and, when present, the
// numeric error code from the response body.
type BackendError struct {
	Message   string
	ErrorCode int
	HasCode   bool
}

func (e *BackendError) Error() string {
	if e.HasCode {
		return fmt.Sprintf("%s (error code %d)", e.Message, e.ErrorCode)
	}
	return e.Message
}

// DataCorruptionError reports an integrity check failure during download.
// It must never be swallowed: the affected cache entry is untrustworthy.
type DataCorruptionError struct {
	Message string
}

func (e *DataCorruptionError) Error() string { return e.Message }
