// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// Sink saves debug output to files, one directory per source.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

func (s *Sink) dir(source string) string {
	return filepath.Join(s.baseDir, pipeline.SourceName(source))
}

// SavePlanJSON saves the decode plan as plan.json.
func (s *Sink) SavePlanJSON(source string, data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.dir(source), "plan.json"), data)
}

// SaveResultJSON saves the extraction statistics as result.json.
func (s *Sink) SaveResultJSON(source string, data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.dir(source), "result.json"), data)
}

// SaveFrame saves one extracted slot as a PNG.
func (s *Sink) SaveFrame(source string, slot int, img image.Image) error {
	dir := filepath.Join(s.dir(source), "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", slot, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("slot-%04d.png", slot))
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
