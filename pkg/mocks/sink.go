package mocks

import (
	"fmt"
	"image"
	"sync"

	"github.com/user/deepframe/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Plans   map[string][]byte
	Results map[string][]byte
	Frames  map[string]image.Image // keyed by "source#slot"
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Plans:   make(map[string][]byte),
		Results: make(map[string][]byte),
		Frames:  make(map[string]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SavePlanJSON(source string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Plans[source] = data
	return nil
}

func (m *DebugSink) SaveResultJSON(source string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[source] = data
	return nil
}

func (m *DebugSink) SaveFrame(source string, slot int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[fmt.Sprintf("%s#%d", source, slot)] = img
	return nil
}

// FrameCount returns the number of saved frames (for test verification).
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
