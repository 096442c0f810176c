package models

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := ErrDuplicateVote.Errorf("voter %s already voted", "0xabc")

	assert.True(t, errors.Is(err, ErrDuplicateVote))
	assert.False(t, errors.Is(err, ErrTokenReused))
	assert.Equal(t, KindDuplicateVote, KindOf(err))
	assert.Equal(t, "voter 0xabc already voted", err.Error())

	wrapped := fmt.Errorf("submit: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDuplicateVote))
	assert.Equal(t, KindDuplicateVote, KindOf(wrapped))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
}

func TestErrorWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrStorage.Wrap(cause)

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}
