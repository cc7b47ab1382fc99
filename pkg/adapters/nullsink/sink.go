// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/deepframe/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SavePlanJSON does nothing.
func (s *Sink) SavePlanJSON(source string, data []byte) error {
	return nil
}

// SaveResultJSON does nothing.
func (s *Sink) SaveResultJSON(source string, data []byte) error {
	return nil
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(source string, slot int, img image.Image) error {
	return nil
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
