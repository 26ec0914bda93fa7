// Package utils holds small generic helpers shared across packages.
package utils

import (
	"bytes"
	"encoding/json"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Nullable is a tri-state JSON field used by partial updates.
// Set is false when the key was absent from the payload, true with a nil
// Value when the key was explicitly null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that was explicitly set to null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Of returns a Nullable set to v.
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// UnmarshalJSON is only invoked for keys present in the payload.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON writes null for unset or null values.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
