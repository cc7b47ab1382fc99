// Package timeline converts between stream timestamps and logical frame numbers.
//
// Frame numbers are derived as round((pts - start) * timeBase * frameRate).
// The arithmetic is exact (big integers), so timestamps that land exactly on a
// frame boundary never truncate to the previous frame.
package timeline

import (
	"fmt"
	"math"
	"math/big"
)

// NoPTS marks an unknown timestamp.
const NoPTS int64 = math.MinInt64

// Rational is a fraction used for frame rates and time bases.
type Rational struct {
	Num int64
	Den int64
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the floating point value, or 0 when Den is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Reduce returns r with the greatest common divisor removed.
func (r Rational) Reduce() Rational {
	a, b := r.Num, r.Den
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return r
	}
	return Rational{Num: r.Num / a, Den: r.Den / a}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Timeline holds the constants needed to map timestamps to frame numbers.
type Timeline struct {
	FrameRate Rational
	TimeBase  Rational
	StartTime int64 // NoPTS is treated as 0
}

// Valid reports whether frame rate and time base are usable.
func (t Timeline) Valid() bool {
	return t.FrameRate.Valid() && t.TimeBase.Valid()
}

// Start returns the start timestamp, 0 when unknown.
func (t Timeline) Start() int64 {
	if t.StartTime == NoPTS {
		return 0
	}
	return t.StartTime
}

// FrameNumber returns the rounded logical frame number of pts.
func (t Timeline) FrameNumber(pts int64) int64 {
	num := new(big.Int).Sub(big.NewInt(pts), big.NewInt(t.Start()))
	num.Mul(num, big.NewInt(t.TimeBase.Num))
	num.Mul(num, big.NewInt(t.FrameRate.Num))

	den := big.NewInt(t.TimeBase.Den)
	den.Mul(den, big.NewInt(t.FrameRate.Den))

	return roundDiv(num, den)
}

// Timestamp returns the timestamp at which frame starts, including the
// stream start offset. Fractional ticks are truncated.
func (t Timeline) Timestamp(frame int64) int64 {
	num := big.NewInt(frame)
	num.Mul(num, big.NewInt(t.FrameRate.Den))
	num.Mul(num, big.NewInt(t.TimeBase.Den))

	den := big.NewInt(t.FrameRate.Num)
	den.Mul(den, big.NewInt(t.TimeBase.Num))

	ts := new(big.Int).Quo(num, den)
	return clampInt64(ts) + t.Start()
}

// Seconds converts a duration in time base ticks to seconds.
func (t Timeline) Seconds(ticks int64) float64 {
	return float64(ticks) * t.TimeBase.Float64()
}

// roundDiv divides num by a positive den, rounding half away from zero.
func roundDiv(num, den *big.Int) int64 {
	twice := new(big.Int).Lsh(num, 1)
	twoDen := new(big.Int).Lsh(den, 1)
	if num.Sign() >= 0 {
		twice.Add(twice, den)
		return clampInt64(twice.Quo(twice, twoDen))
	}
	twice.Neg(twice)
	twice.Add(twice, den)
	return -clampInt64(twice.Quo(twice, twoDen))
}

func clampInt64(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}
