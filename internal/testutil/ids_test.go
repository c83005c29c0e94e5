package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs_InOrder(t *testing.T) {
	gen := NewSequenceIDs("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
}

func TestSequenceIDs_PanicsWhenExhausted(t *testing.T) {
	gen := NewSequenceIDs("run-1")
	gen.Generate()
	assert.PanicsWithValue(t, "SequenceIDs: all 1 ids exhausted", func() { gen.Generate() })
}
