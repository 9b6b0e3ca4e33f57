package common

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("utterance %s has no text", "u1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "utterance u1 has no text")
}

func TestInvalidConfigf(t *testing.T) {
	err := InvalidConfigf("maxLength must be >= 1, got %d", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))

	err := WrapError(fs.ErrPermission, "write %s", "out.json")
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, "write out.json: permission denied", err.Error())
}
