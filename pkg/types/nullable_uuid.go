package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID distinguishes an absent JSON field from an explicit null so a
// PATCH-style body can clear a reference without touching the others.
type NullableUUID struct {
	Present bool
	Value   *uuid.UUID
}

// SetUUID is a present, non-null value.
func SetUUID(id uuid.UUID) NullableUUID {
	return NullableUUID{Present: true, Value: &id}
}

// ClearUUID is an explicit null.
func ClearUUID() NullableUUID {
	return NullableUUID{Present: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	n.Present = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	if parsed == uuid.Nil {
		n.Value = nil
		return nil
	}
	n.Value = &parsed
	return nil
}

// MarshalJSON emits the value or null.
func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value.String())
}

// Apply returns the updated reference: current when the field was absent,
// otherwise a copy of the new value (nil for null).
func (n NullableUUID) Apply(current *uuid.UUID) *uuid.UUID {
	if !n.Present {
		return current
	}
	if n.Value == nil {
		return nil
	}
	copied := *n.Value
	return &copied
}
