package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Arnaud58/LlamaKeeper/pkg/core"
)

func TestKeeperErrorFormat(t *testing.T) {
	err := core.NewKeeperError("CreateMemory", core.ErrInvalidContent)
	assert.EqualError(t, err, "llamakeeper: CreateMemory: invalid memory content")
}

func TestKeeperErrorUnwrap(t *testing.T) {
	err := core.NewKeeperError("UpdateMemoryImportance", core.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	var keeperErr *core.KeeperError
	assert.True(t, errors.As(err, &keeperErr))
	assert.Equal(t, "UpdateMemoryImportance", keeperErr.Op)
}

func TestNewKeeperErrorNil(t *testing.T) {
	assert.Nil(t, core.NewKeeperError("CreateMemory", nil))
}
