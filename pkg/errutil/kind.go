// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package errutil holds the failure taxonomy shared by every layer and
// helpers for logging and asserting on classified errors.
package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Every classified error unwraps to exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateField     = errors.New("duplicate field")
	ErrNoChanges          = errors.New("no changes")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrBadSignature       = errors.New("bad token signature")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// kinds is ordered so that the outermost classification wins when an error
// carries more than one (a rejected token is Forbidden first).
var kinds = []error{
	ErrValidation,
	ErrDuplicateField,
	ErrNoChanges,
	ErrUnauthorized,
	ErrInvalidCredentials,
	ErrForbidden,
	ErrNotFound,
	ErrStoreUnavailable,
	ErrInvalidToken,
	ErrExpiredToken,
	ErrBadSignature,
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    error
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Validation reports a malformed or out-of-range field.
func Validation(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateField reports that a unique field value is already held by another entity.
func DuplicateField(field string) error {
	return &Error{Kind: ErrDuplicateField, Field: field, Message: field + " already taken"}
}

// NoChanges reports an update whose diff against the stored entity is empty.
func NoChanges() error {
	return &Error{Kind: ErrNoChanges, Message: "no valid fields provided for update"}
}

// Unauthorized reports a request that carries no credentials.
func Unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

// Forbidden reports a rejected credential or a caller that does not own the resource.
func Forbidden(message string, cause error) error {
	return &Error{Kind: ErrForbidden, Message: message, Cause: cause}
}

// NotFound reports a missing entity.
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// InvalidCredentials is returned for every failed sign-in, whatever the reason.
func InvalidCredentials() error {
	return &Error{Kind: ErrInvalidCredentials, Message: "invalid email or password"}
}

// StoreUnavailable reports a store call that timed out or could not reach the database.
func StoreUnavailable(cause error) error {
	return &Error{Kind: ErrStoreUnavailable, Message: "store unavailable", Cause: cause}
}

// KindOf returns the failure kind of err, or nil for unclassified errors.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// FieldOf returns the field named by a classified error, if any.
func FieldOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Field
	}
	return ""
}

// HTTPStatus maps err to the single status code of its kind.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation, ErrDuplicateField, ErrNoChanges:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidCredentials:
		return http.StatusUnauthorized
	case ErrForbidden, ErrInvalidToken, ErrExpiredToken, ErrBadSignature:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for err. Server-side
// failures never leak their cause.
func PublicMessage(err error) string {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	var classified *Error
	if errors.As(err, &classified) && classified.Message != "" {
		return classified.Message
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return http.StatusText(status)
}
