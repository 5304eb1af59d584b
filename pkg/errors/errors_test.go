package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_TypeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{
			name:       "not found",
			err:        NewNotFoundError("node abc"),
			wantType:   ErrorTypeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "already exists",
			err:        NewAlreadyExistsError("/tmp/kb.store"),
			wantType:   ErrorTypeAlreadyExists,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "already open elsewhere",
			err:        NewAlreadyOpenError("/tmp/kb.store", "pid 4242 on hosta"),
			wantType:   ErrorTypeAlreadyOpenElsewhere,
			wantStatus: http.StatusLocked,
		},
		{
			name:       "store not open",
			err:        NewStoreNotOpenError("s-1"),
			wantType:   ErrorTypeStoreNotOpen,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "store closing",
			err:        NewStoreClosingError("s-1"),
			wantType:   ErrorTypeStoreClosing,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "structural violation",
			err:        NewStructuralViolationError("cycle detected"),
			wantType:   ErrorTypeStructuralViolation,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "decode",
			err:        NewDecodeError("node content", errors.New("truncated")),
			wantType:   ErrorTypeDecode,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "version mismatch",
			err:        NewVersionMismatchError(9, 1),
			wantType:   ErrorTypeVersionMismatch,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "io",
			err:        NewIOError("write manifest", errors.New("disk full")),
			wantType:   ErrorTypeIO,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "validation",
			err:        NewValidationError("title required"),
			wantType:   ErrorTypeValidation,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.StackTrace)
			assert.True(t, IsType(tt.err, tt.wantType))
		})
	}
}

func TestHasChildrenError(t *testing.T) {
	err := NewHasChildrenError("n-7", 3)

	assert.True(t, IsStructuralViolation(err))
	assert.True(t, IsHasChildren(err))
	assert.Equal(t, CodeHasChildren, err.Code)
	assert.Contains(t, err.Message, "n-7")

	// A plain structural violation must not register as HasChildren.
	assert.False(t, IsHasChildren(NewStructuralViolationError("multiple roots")))
}

func TestWrap_PreservesType(t *testing.T) {
	base := NewNotFoundError("node n-1")
	wrapped := Wrap(base, "get node")

	require.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "get node")
	assert.Contains(t, wrapped.Error(), "node n-1 not found")

	// The original error message must stay untouched.
	assert.Equal(t, "node n-1 not found", base.Message)
}

func TestWrap_ForeignError(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "flush store")

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
	assert.ErrorContains(t, appErr.Cause, "boom")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
	assert.NoError(t, Wrapf(nil, "op %s", "x"))
}

func TestHelpers_SeeThroughErrorChains(t *testing.T) {
	inner := NewDecodeError("node content", errors.New("bad magic"))
	outer := fmt.Errorf("while opening store: %w", inner)

	assert.True(t, IsAppError(outer))
	assert.True(t, IsDecode(outer))
	assert.False(t, IsNotFound(outer))

	got := GetAppError(outer)
	require.NotNil(t, got)
	assert.Equal(t, ErrorTypeDecode, got.Type)
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("no such file")
	err := NewIOError("read node", cause)

	assert.ErrorIs(t, err, cause)
}

func TestErrorString(t *testing.T) {
	plain := NewStoreNotOpenError("s-9")
	assert.Equal(t, "STORE_NOT_OPEN: store s-9 is not open", plain.Error())

	withCause := NewIOError("rename", errors.New("permission denied"))
	assert.Contains(t, withCause.Error(), "caused by: permission denied")
}
