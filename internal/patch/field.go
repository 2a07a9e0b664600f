// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package patch models partial-update payloads where an absent key and a
// zero value mean different things.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field is a payload value that remembers whether its key was present.
// A JSON null is treated the same as an absent key.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field present unless the value is null.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err //nolint:wrapcheck // decoder reports the offending field
	}
	f.Set = true
	f.Value = v
	return nil
}

// MarshalJSON writes the value, or null when the field is absent.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value) //nolint:wrapcheck // passthrough
}

// Changed reports whether the field is present and differs from current.
func Changed[T comparable](f Field[T], current T) bool {
	return f.Set && f.Value != current
}

// Or returns the field value when present, otherwise fallback.
func (f Field[T]) Or(fallback T) T {
	if f.Set {
		return f.Value
	}
	return fallback
}
