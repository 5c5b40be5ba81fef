package logbuf

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferKeepsLines(t *testing.T) {
	b := New(10)
	fmt.Fprintf(b, "first\n")
	fmt.Fprintf(b, "second\n")

	assert.Equal(t, "first\nsecond\n", b.Contents())
	assert.Equal(t, 2, b.Total())
}

func TestBufferEvictsOldest(t *testing.T) {
	b := New(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(b, "line %d\n", i)
	}

	assert.Equal(t, "line 3\nline 4\nline 5\n", b.Contents())
	assert.Equal(t, 5, b.Total())
	assert.Equal(t, 3, b.Size())
}

func TestBufferClear(t *testing.T) {
	b := New(3)
	fmt.Fprintf(b, "something\n")
	b.Clear()

	assert.Empty(t, b.Contents())
	assert.Zero(t, b.Total())

	fmt.Fprintf(b, "after\n")
	assert.Equal(t, "after\n", b.Contents())
}

func TestBufferAsLogOutput(t *testing.T) {
	b := New(10)
	logger := log.New(b, "", 0)
	logger.Println("sequencer: filling chamber")

	require.Equal(t, "sequencer: filling chamber\n", b.Contents())
}
