package extract

import (
	"fmt"

	"github.com/user/deepframe/pkg/buffer"
	"github.com/user/deepframe/pkg/plan"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/seek"
)

// matcher walks the plan left to right, writing each decoded target frame
// into every slot that requested it.
type matcher struct {
	plan       plan.Plan
	cursor     int
	buf        *buffer.PixelBuffer
	conv       ports.Converter
	seeker     *seek.Controller
	width      int
	height     int
	frameBytes int
	filled     []bool
	stats      *Stats
	logger     ports.Logger
}

func newMatcher(
	p plan.Plan,
	buf *buffer.PixelBuffer,
	conv ports.Converter,
	seeker *seek.Controller,
	width, height int,
	stats *Stats,
	logger ports.Logger,
) *matcher {
	return &matcher{
		plan:       p,
		buf:        buf,
		conv:       conv,
		seeker:     seeker,
		width:      width,
		height:     height,
		frameBytes: width * height * ports.OutputChannels,
		filled:     make([]bool, p.Len()),
		stats:      stats,
		logger:     logger,
	}
}

// Done reports whether every plan entry has been satisfied.
func (m *matcher) Done() bool {
	return m.cursor >= len(m.plan.Entries)
}

// Match consumes one decoded frame whose logical frame number is n.
// The frame is only read during this call. A frame whose geometry differs
// from the stream's leaves its slots unfilled.
func (m *matcher) Match(frame *ports.Frame, n int64) error {
	if m.Done() {
		return nil
	}

	target := m.plan.Entries[m.cursor].Frame
	if n > target {
		return &StreamConsistencyError{PTS: frame.PTS, Decoded: n, Target: target}
	}
	if n < target {
		return nil
	}

	if frame.Width != m.width || frame.Height != m.height {
		m.logger.Warn("Frame resolution mismatch at frame %d: got %dx%d, expected %dx%d",
			n, frame.Width, frame.Height, m.width, m.height)
		m.stats.SkippedFrames++
		for !m.Done() && m.plan.Entries[m.cursor].Frame == n {
			m.cursor++
		}
		m.advance()
		return nil
	}

	first := m.plan.Entries[m.cursor]
	converted, err := m.buf.Span(first.Slot*m.frameBytes, m.frameBytes)
	if err != nil {
		return err
	}
	if err := m.conv.Convert(frame, converted); err != nil {
		return fmt.Errorf("extract: convert frame %d: %w", n, err)
	}
	m.fill(first.Slot)
	m.stats.FramesMatched++

	for !m.Done() && m.plan.Entries[m.cursor].Frame == n {
		dup := m.plan.Entries[m.cursor]
		out, err := m.buf.Span(dup.Slot*m.frameBytes, m.frameBytes)
		if err != nil {
			return err
		}
		copy(out, converted)
		m.fill(dup.Slot)
	}

	m.logger.Debug("Matched frame %d (pts %d), %d of %d slots filled",
		n, frame.PTS, m.stats.SlotsFilled, len(m.plan.Entries))

	m.advance()
	return nil
}

// advance points the seek controller at the next unsatisfied entry.
func (m *matcher) advance() {
	if !m.Done() {
		m.seeker.Advance(m.plan.Entries[m.cursor].Frame)
	}
}

// fill marks slot as written and advances the cursor.
func (m *matcher) fill(slot int) {
	m.filled[slot] = true
	m.cursor++
	m.stats.SlotsFilled++
}

// Missing returns the slots that never received a frame, ascending.
func (m *matcher) Missing() []int {
	var missing []int
	for slot, ok := range m.filled {
		if !ok {
			missing = append(missing, slot)
		}
	}
	return missing
}
