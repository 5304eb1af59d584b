package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// WorkspaceID identifies a workspace, the user-level grouping of stores.
type WorkspaceID struct {
	value string
}

// NewWorkspaceID allocates a fresh random WorkspaceID
func NewWorkspaceID() WorkspaceID {
	return WorkspaceID{value: uuid.New().String()}
}

// NewWorkspaceIDFromString restores a WorkspaceID from its string form
func NewWorkspaceIDFromString(id string) (WorkspaceID, error) {
	if id == "" {
		return WorkspaceID{}, errors.New("workspace ID cannot be empty")
	}
	if !isValidUUID(id) {
		return WorkspaceID{}, errors.New("workspace ID must be a valid UUID")
	}
	return WorkspaceID{value: id}, nil
}

// String returns the string representation of the WorkspaceID
func (id WorkspaceID) String() string {
	return id.value
}

// Equals checks if two WorkspaceIDs are equal
func (id WorkspaceID) Equals(other WorkspaceID) bool {
	return id.value == other.value
}

// IsZero checks if the WorkspaceID is the zero value
func (id WorkspaceID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id WorkspaceID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *WorkspaceID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("WorkspaceID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
