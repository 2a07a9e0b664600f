// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// ConstraintFields maps unique constraint names to the payload field they guard.
type ConstraintFields map[string]string

// IsTimeout reports whether err is a store call that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

// UniqueViolation returns the constraint name when err is a unique violation.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Classify maps driver failures onto the errutil taxonomy. A unique
// violation on a known constraint becomes DuplicateField, a timeout becomes
// StoreUnavailable. Anything else, including already classified errors, is
// returned unchanged.
func Classify(err error, fields ConstraintFields) error {
	if err == nil || errutil.KindOf(err) != nil {
		return err
	}
	if constraint, ok := UniqueViolation(err); ok {
		if field, known := fields[constraint]; known {
			return errutil.DuplicateField(field)
		}
		return err
	}
	if IsTimeout(err) {
		return errutil.StoreUnavailable(err)
	}
	return err
}
