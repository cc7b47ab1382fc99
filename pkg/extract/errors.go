package extract

import (
	"errors"
	"fmt"

	"github.com/user/deepframe/pkg/plan"
)

var (
	// ErrSourceOpen is returned when the container cannot be opened.
	ErrSourceOpen = errors.New("extract: cannot open source")

	// ErrStreamNotFound is returned when the source has no video stream.
	ErrStreamNotFound = errors.New("extract: video stream not found")

	// ErrCodecUnavailable is returned when no decoder exists for the stream.
	ErrCodecUnavailable = errors.New("extract: codec unavailable")

	// ErrCodecContext is returned when the decoder exists but fails to open.
	ErrCodecContext = errors.New("extract: cannot open codec context")

	// ErrInvalidGeometry is returned for non-positive stream width or height.
	ErrInvalidGeometry = errors.New("extract: invalid video dimensions")

	// ErrInvalidTimeline is returned when frame rate or time base is unusable.
	ErrInvalidTimeline = errors.New("extract: invalid frame rate or time base")

	// ErrConverterInit is returned when the pixel converter cannot be created.
	ErrConverterInit = errors.New("extract: cannot initialize pixel converter")

	// ErrStreamConsistency is matched by *StreamConsistencyError.
	ErrStreamConsistency = errors.New("extract: stream consistency violation")

	// ErrEmptyRequest is returned when no frame indices are given.
	ErrEmptyRequest = plan.ErrEmpty
)

// StreamConsistencyError reports a decoded frame whose frame number passed
// the frame being sought, meaning timestamps are corrupt or not monotonic.
type StreamConsistencyError struct {
	PTS     int64
	Decoded int64
	Target  int64
}

func (e *StreamConsistencyError) Error() string {
	return fmt.Sprintf("invalid frame position: %d > %d (pts %d)", e.Decoded, e.Target, e.PTS)
}

// Is makes errors.Is(err, ErrStreamConsistency) succeed.
func (e *StreamConsistencyError) Is(target error) bool {
	return target == ErrStreamConsistency
}
