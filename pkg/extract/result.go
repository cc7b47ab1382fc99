package extract

import (
	"time"

	"github.com/user/deepframe/pkg/buffer"
	"github.com/user/deepframe/pkg/ports"
)

// Stats counts the work done by one extraction call.
type Stats struct {
	PacketsRead   int
	FramesDecoded int
	FramesMatched int // distinct frames converted
	SlotsFilled   int // including duplicate fan-out
	Seeks         int
	SkippedFrames int // geometry mismatches and frames without timestamp
	Duration      time.Duration
}

// Result is the outcome of a successful extraction call.
type Result struct {
	// Buffer has dimensions [len(indices), height, width, 3]; slot i holds
	// the frame requested by indices[i].
	Buffer *buffer.PixelBuffer

	// Missing lists slots whose frame was never decoded, e.g. indices past
	// the end of the stream. Their bytes are zero.
	Missing []int

	Stream ports.StreamInfo
	Stats  Stats
	State  State
}

// Complete reports whether every requested slot was filled.
func (r *Result) Complete() bool {
	return len(r.Missing) == 0
}
