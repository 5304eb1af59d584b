package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// StoreID identifies one store across its whole lifetime, independent of
// where the store currently lives on disk.
type StoreID struct {
	value string
}

// NewStoreID allocates a fresh random StoreID
func NewStoreID() StoreID {
	return StoreID{value: uuid.New().String()}
}

// NewStoreIDFromString restores a StoreID from its string form
func NewStoreIDFromString(id string) (StoreID, error) {
	if id == "" {
		return StoreID{}, errors.New("store ID cannot be empty")
	}
	if !isValidUUID(id) {
		return StoreID{}, errors.New("store ID must be a valid UUID")
	}
	return StoreID{value: id}, nil
}

// String returns the string representation of the StoreID
func (id StoreID) String() string {
	return id.value
}

// Equals checks if two StoreIDs are equal
func (id StoreID) Equals(other StoreID) bool {
	return id.value == other.value
}

// IsZero checks if the StoreID is the zero value
func (id StoreID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id StoreID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *StoreID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("StoreID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
