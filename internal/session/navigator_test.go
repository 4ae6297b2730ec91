package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigatorStartsAtFirstQuestion(t *testing.T) {
	nav := NewNavigator(5)
	assert.Equal(t, 1, nav.Current())
}

func TestNavigatorSaturates(t *testing.T) {
	nav := NewNavigator(2)

	assert.False(t, nav.Previous())
	assert.Equal(t, 1, nav.Current())

	assert.True(t, nav.Next())
	assert.False(t, nav.Next())
	assert.Equal(t, 2, nav.Current())
}

func TestNavigatorJumpBounds(t *testing.T) {
	nav := NewNavigator(3)

	assert.True(t, nav.JumpTo(3))
	assert.Equal(t, 3, nav.Current())

	assert.False(t, nav.JumpTo(0))
	assert.False(t, nav.JumpTo(4))
	assert.Equal(t, 3, nav.Current())
}

func TestNavigatorSingleQuestion(t *testing.T) {
	nav := NewNavigator(1)

	assert.False(t, nav.Next())
	assert.False(t, nav.Previous())
	assert.Equal(t, 1, nav.Current())
}
