package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRational(t *testing.T) {
	assert.True(t, Rational{Num: 24, Den: 1}.Valid())
	assert.False(t, Rational{Num: 0, Den: 1}.Valid())
	assert.False(t, Rational{Num: 1, Den: 0}.Valid())

	assert.Equal(t, 0.0, Rational{Num: 1, Den: 0}.Float64())
	assert.InDelta(t, 29.97, Rational{Num: 30000, Den: 1001}.Float64(), 0.001)

	assert.Equal(t, Rational{Num: 24, Den: 1}, Rational{Num: 240000, Den: 10000}.Reduce())
	assert.Equal(t, Rational{Num: 0, Den: 0}, Rational{}.Reduce())
	assert.Equal(t, "1/24000", Rational{Num: 1, Den: 24000}.String())
}

func TestFrameNumber_ExactBoundaries(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 24, Den: 1},
		TimeBase:  Rational{Num: 1, Den: 24000},
	}

	// Indices that truncated to the previous frame with float arithmetic.
	for _, frame := range []int64{7, 14, 28, 31, 56, 59, 62, 109, 14314} {
		assert.Equal(t, frame, tl.FrameNumber(frame*1000), "frame %d", frame)
	}
}

func TestFrameNumber_Rounds(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 24, Den: 1},
		TimeBase:  Rational{Num: 1, Den: 24000},
	}

	assert.Equal(t, int64(7), tl.FrameNumber(6990))
	assert.Equal(t, int64(7), tl.FrameNumber(7010))
	assert.Equal(t, int64(8), tl.FrameNumber(7500))
	assert.Equal(t, int64(7), tl.FrameNumber(7499))
	assert.Equal(t, int64(-1), tl.FrameNumber(-1000))
	assert.Equal(t, int64(-1), tl.FrameNumber(-500))
}

func TestFrameNumber_NTSC(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 30000, Den: 1001},
		TimeBase:  Rational{Num: 1, Den: 30000},
	}

	for frame := int64(0); frame < 5000; frame += 37 {
		assert.Equal(t, frame, tl.FrameNumber(frame*1001))
		assert.Equal(t, frame*1001, tl.Timestamp(frame))
	}
}

func TestStartOffset(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 25, Den: 1},
		TimeBase:  Rational{Num: 1, Den: 90000},
		StartTime: 3600,
	}

	assert.Equal(t, int64(3600), tl.Start())
	assert.Equal(t, int64(0), tl.FrameNumber(3600))
	assert.Equal(t, int64(10), tl.FrameNumber(3600+10*3600))
	assert.Equal(t, int64(3600+10*3600), tl.Timestamp(10))
}

func TestNoPTSStart(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 30, Den: 1},
		TimeBase:  Rational{Num: 1, Den: 1000},
		StartTime: NoPTS,
	}

	assert.Equal(t, int64(0), tl.Start())
	assert.Equal(t, int64(3), tl.FrameNumber(100))
	// 1000/30 ms per frame, truncated.
	assert.Equal(t, int64(100), tl.Timestamp(3))
	assert.Equal(t, int64(133), tl.Timestamp(4))
}

func TestLargeTimestampsDoNotOverflow(t *testing.T) {
	tl := Timeline{
		FrameRate: Rational{Num: 60000, Den: 1001},
		TimeBase:  Rational{Num: 1, Den: 90000},
	}

	// ~27 hours of 59.94 fps at 90kHz.
	frame := int64(6_000_000)
	ts := tl.Timestamp(frame)
	assert.Equal(t, frame, tl.FrameNumber(ts))
}

func TestSeconds(t *testing.T) {
	tl := Timeline{TimeBase: Rational{Num: 1, Den: 1000}}
	assert.InDelta(t, 14.315, tl.Seconds(14315), 1e-9)
}

func TestValid(t *testing.T) {
	assert.True(t, Timeline{FrameRate: Rational{24, 1}, TimeBase: Rational{1, 24000}}.Valid())
	assert.False(t, Timeline{FrameRate: Rational{0, 1}, TimeBase: Rational{1, 24000}}.Valid())
}
