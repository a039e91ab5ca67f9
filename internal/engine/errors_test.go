package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DispatchError
		want string
	}{
		{
			name: "message only",
			err:  newConfigError("module name is required"),
			want: "CONFIG_ERROR: module name is required",
		},
		{
			name: "origin and definition",
			err:  newRenderError("bolt-1", "animation/firebolt", errors.New("canvas gone")),
			want: "RENDER_FAILED: renderer rejected batch (origin=bolt-1, definition=animation/firebolt): canvas gone",
		},
		{
			name: "origin only",
			err:  newStoreError("bolt-1", errors.New("disk full")),
			want: "STORE_FAILED: dispatch log write failed (origin=bolt-1): disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDispatchError_Predicates(t *testing.T) {
	cause := errors.New("cause")
	wrapped := fmt.Errorf("dispatch: %w", newRenderError("o", "d", cause))

	assert.True(t, IsRenderError(wrapped))
	assert.False(t, IsConfigError(wrapped))
	assert.False(t, IsStoreError(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.True(t, IsConfigError(newConfigError("x")))
	assert.True(t, IsStoreError(newStoreError("o", cause)))
	assert.False(t, IsRenderError(cause))
	assert.False(t, IsRenderError(nil))
}
