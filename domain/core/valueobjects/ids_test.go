package valueobjects

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	id1 := NewNodeID()
	id2 := NewNodeID()

	assert.False(t, id1.IsZero())
	assert.NotEqual(t, id1.String(), id2.String(), "generated IDs must be unique")
	assert.True(t, isValidUUID(id1.String()))
}

func TestNewNodeIDFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid UUID",
			input: "550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a UUID",
			input:   "definitely-not-a-uuid",
			wantErr: true,
		},
		{
			name:    "truncated UUID",
			input:   "550e8400-e29b-41d4",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewNodeIDFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, id.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestNodeID_Equals(t *testing.T) {
	a := mustNodeID(t, "550e8400-e29b-41d4-a716-446655440000")
	b := mustNodeID(t, "550e8400-e29b-41d4-a716-446655440000")
	c := NewNodeID()

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(NodeID{}))
}

func TestNodeID_JSONRoundTrip(t *testing.T) {
	id := NewNodeID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded NodeID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, id.Equals(decoded))
}

func TestNodeID_UnmarshalJSON_Invalid(t *testing.T) {
	var id NodeID
	assert.Error(t, json.Unmarshal([]byte(`42`), &id))

	// null leaves the zero value in place
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.True(t, id.IsZero())
}

func TestStoreID(t *testing.T) {
	id := NewStoreID()
	assert.False(t, id.IsZero())

	restored, err := NewStoreIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(restored))

	_, err = NewStoreIDFromString("")
	assert.Error(t, err)
	_, err = NewStoreIDFromString("nope")
	assert.Error(t, err)
}

func TestWorkspaceID(t *testing.T) {
	id := NewWorkspaceID()
	assert.False(t, id.IsZero())

	restored, err := NewWorkspaceIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(restored))

	_, err = NewWorkspaceIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestContentHash(t *testing.T) {
	data := []byte("attachment bytes")

	h1 := NewContentHash(data, ".PNG")
	h2 := NewContentHash(data, "png")
	h3 := NewContentHash([]byte("different"), "png")

	assert.Len(t, h1.Digest(), 64)
	assert.Equal(t, "png", h1.Ext(), "extension is normalized")
	assert.True(t, h1.Equals(h2), "identity is the digest, not the extension")
	assert.False(t, h1.Equals(h3))
	assert.True(t, strings.HasSuffix(h1.Filename(), ".png"))
}

func TestContentHash_NoExtension(t *testing.T) {
	h := NewContentHash([]byte("raw"), "")
	assert.Equal(t, h.Digest(), h.Filename())
}

func TestNewContentHashFromFilename(t *testing.T) {
	original := NewContentHash([]byte("shared asset"), "jpg")

	restored, err := NewContentHashFromFilename(original.Filename())
	require.NoError(t, err)
	assert.True(t, original.Equals(restored))
	assert.Equal(t, "jpg", restored.Ext())

	_, err = NewContentHashFromFilename("short.png")
	assert.Error(t, err)
	_, err = NewContentHashFromFilename("")
	assert.Error(t, err)
}

func mustNodeID(t *testing.T, s string) NodeID {
	t.Helper()
	id, err := NewNodeIDFromString(s)
	require.NoError(t, err)
	return id
}

func BenchmarkNewNodeID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewNodeID()
	}
}

func BenchmarkNewContentHash(b *testing.B) {
	data := make([]byte, 4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewContentHash(data, "bin")
	}
}
