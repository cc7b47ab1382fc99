package seek

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(0).Threshold())
	assert.Equal(t, DefaultThreshold, New(-5).Threshold())
	assert.Equal(t, int64(42), New(42).Threshold())
}

func TestDecide_ShortGapProceeds(t *testing.T) {
	c := New(300)
	c.Advance(300)

	assert.Equal(t, Proceed, c.Decide(0), "distance equal to threshold decodes sequentially")
	assert.False(t, c.Attempted())
}

func TestDecide_SeeksOncePerTarget(t *testing.T) {
	c := New(300)
	c.Advance(1000)

	assert.Equal(t, Seek, c.Decide(0))
	assert.True(t, c.Attempted())

	// The seek overshot backwards: still far away, but no second seek.
	assert.Equal(t, Proceed, c.Decide(10))
	assert.Equal(t, Proceed, c.Decide(11))
}

func TestAdvance_ClearsFlagOnlyOnChange(t *testing.T) {
	c := New(10)
	c.Advance(100)
	assert.Equal(t, Seek, c.Decide(0))

	c.Advance(100)
	assert.True(t, c.Attempted(), "same target keeps the flag")
	assert.Equal(t, Proceed, c.Decide(0))

	c.Advance(500)
	assert.False(t, c.Attempted())
	assert.Equal(t, int64(500), c.Target())
	assert.Equal(t, Seek, c.Decide(101))
}

func TestMarkAttempted(t *testing.T) {
	c := New(10)
	c.Advance(100)
	c.MarkAttempted()

	assert.Equal(t, Proceed, c.Decide(0))
}

func TestDecide_NegativeDistance(t *testing.T) {
	c := New(10)
	c.Advance(5)

	assert.Equal(t, Proceed, c.Decide(50))
	assert.False(t, c.Attempted())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "proceed", Proceed.String())
	assert.Equal(t, "seek", Seek.String())
	assert.Equal(t, "unknown", Decision(9).String())
}
