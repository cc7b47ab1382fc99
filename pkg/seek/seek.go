// Package seek decides when a coarse seek beats sequential decoding.
//
// A seek lands on the keyframe at or before the target, which can be far
// from it on long GOPs, and costs a decoder flush. Short gaps are therefore
// decoded sequentially; only gaps wider than the threshold trigger a seek,
// and every target gets at most one seek so an overshooting seek cannot loop.
package seek

// DefaultThreshold is the frame distance above which a seek is issued.
const DefaultThreshold int64 = 300

// Decision is the outcome of Controller.Decide.
type Decision int

const (
	// Proceed means the frame should be matched normally.
	Proceed Decision = iota
	// Seek means the caller must seek to Target, flush the codec and
	// discard the current frame.
	Seek
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Seek:
		return "seek"
	default:
		return "unknown"
	}
}

// Controller tracks the current target and whether it was already sought.
type Controller struct {
	threshold int64
	target    int64
	attempted bool
}

// New creates a Controller. Non-positive thresholds use DefaultThreshold.
func New(threshold int64) *Controller {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Controller{threshold: threshold}
}

// Threshold returns the configured distance threshold.
func (c *Controller) Threshold() int64 {
	return c.threshold
}

// Target returns the frame currently sought.
func (c *Controller) Target() int64 {
	return c.target
}

// Attempted reports whether a seek was issued for the current target.
func (c *Controller) Attempted() bool {
	return c.attempted
}

// Advance moves to a new target. The seek flag is cleared only when the
// target actually changes.
func (c *Controller) Advance(target int64) {
	if target == c.target {
		return
	}
	c.target = target
	c.attempted = false
}

// MarkAttempted records a seek issued for the current target outside of
// Decide, such as the initial positioning seek.
func (c *Controller) MarkAttempted() {
	c.attempted = true
}

// Decide is called once per decoded frame, before matching.
func (c *Controller) Decide(decoded int64) Decision {
	if c.target-decoded > c.threshold && !c.attempted {
		c.attempted = true
		return Seek
	}
	return Proceed
}
