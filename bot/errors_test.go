package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorMatchesStorageUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("subscribe: %w", NewStoreError("subscribe", "guild-1", cause))

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	var storeErr *StoreError
	if assert.ErrorAs(t, err, &storeErr) {
		assert.Equal(t, "subscribe", storeErr.Op)
		assert.Equal(t, "guild-1", storeErr.ServerID)
	}
	assert.Equal(t, "subscribe: store subscribe (server guild-1): connection refused", err.Error())
}

func TestStoreErrorKeepsContextCause(t *testing.T) {
	err := NewStoreError("list_subscribers", "", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "store list_subscribers: context deadline exceeded", err.Error())
}

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("limit must be positive, got %d", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: limit must be positive, got 0", err.Error())
}
