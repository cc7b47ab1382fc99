// Package export implements the stage that writes extracted frames to disk.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// ErrNoResult is returned when the decode result carries no frames.
var ErrNoResult = errors.New("export: no decode result")

// DefaultPrefix names output files when ExportInput.Prefix is empty.
const DefaultPrefix = "frame"

// Stage writes a decode result as image files, a raw buffer or a contact sheet.
type Stage struct {
	fs         ports.FileSystem
	renderer   ports.Renderer
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new export stage that encodes images on every CPU.
func NewStage(fs ports.FileSystem, renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		fs:         fs,
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("export"),
		numWorkers: runtime.NumCPU(),
	}
}

// WithWorkers sets the number of images encoded concurrently.
// Values below 1 are treated as 1.
func (s *Stage) WithWorkers(n int) *Stage {
	if n < 1 {
		n = 1
	}
	s.numWorkers = n
	return s
}

// Execute writes input.Decoded to input.OutputDir. Files written before a
// failure are removed again.
func (s *Stage) Execute(ctx context.Context, input pipeline.ExportInput) (pipeline.ExportResult, error) {
	result := pipeline.ExportResult{}

	res := input.Decoded.Result
	if res == nil || res.Buffer == nil {
		return result, ErrNoResult
	}
	if dims := res.Buffer.Dims(); len(dims) == 0 || dims[0] != len(input.Decoded.Indices) {
		return result, fmt.Errorf("export: buffer holds %v for %d indices", dims, len(input.Decoded.Indices))
	}
	input = withDefaults(input)

	if err := s.fs.MkdirAll(input.OutputDir); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	w := &writer{stage: s, dir: input.OutputDir}
	var err error
	switch input.Format {
	case pipeline.FormatPNG:
		err = s.writeImages(ctx, w, input, ports.FormatPNG)
	case pipeline.FormatJPEG:
		err = s.writeImages(ctx, w, input, ports.FormatJPEG)
	case pipeline.FormatRaw:
		err = s.writeRaw(w, input)
	case pipeline.FormatSheet:
		err = s.writeSheet(ctx, w, input)
	default:
		err = fmt.Errorf("%w: %q", pipeline.ErrUnknownFormat, input.Format)
	}
	if err != nil {
		w.rollback()
		return result, err
	}

	result.Files = w.files
	result.Bytes = w.bytes
	s.logger.Debug("Exported %s: %d files, %d bytes", input.Decoded.Source, len(w.files), w.bytes)
	return result, nil
}

func withDefaults(input pipeline.ExportInput) pipeline.ExportInput {
	def := pipeline.DefaultExportInput()
	if input.Format == "" {
		input.Format = def.Format
	}
	if input.Prefix == "" {
		input.Prefix = DefaultPrefix
	}
	if input.Quality <= 0 || input.Quality > 100 {
		input.Quality = def.Quality
	}
	if input.SheetColumns <= 0 {
		input.SheetColumns = def.SheetColumns
	}
	if input.Theme.BackgroundColor == nil {
		input.Theme = def.Theme
	}
	return input
}

// writeImages encodes slots with a worker pool and writes them in slot order.
func (s *Stage) writeImages(ctx context.Context, w *writer, input pipeline.ExportInput, format ports.ImageFormat) error {
	res := input.Decoded.Result
	missing := missingSet(res)
	source := input.Decoded.Source

	s.logger.Debug("Encoding %d frames with %d workers", len(input.Decoded.Indices)-len(missing), s.numWorkers)

	encoded := make([][]byte, len(input.Decoded.Indices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)
	for slot := range input.Decoded.Indices {
		if missing[slot] {
			s.logger.Debug("Slot %d of %s has no frame, not written", slot, source)
			continue
		}
		slot := slot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			img, err := s.slotImage(source, res, slot)
			if err != nil {
				return err
			}
			scaled := s.scale(img, input.ScaleWidth)

			data, err := s.renderer.EncodeImage(scaled, format, input.Quality)
			if err != nil {
				return fmt.Errorf("encode slot %d: %w", slot, err)
			}
			encoded[slot] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for slot, data := range encoded {
		if data == nil {
			continue
		}
		name := fmt.Sprintf("%s-%04d.%s", input.Prefix, slot, format)
		if err := w.write(name, data); err != nil {
			return err
		}
	}
	return nil
}

// slotImage converts one slot and hands it to the debug sink.
func (s *Stage) slotImage(source string, res *extract.Result, slot int) (*image.RGBA, error) {
	img, err := FrameImage(res, slot)
	if err != nil {
		return nil, err
	}
	if s.sink.Enabled() {
		if err := s.sink.SaveFrame(source, slot, img); err != nil {
			s.logger.Warn("Saving debug frame %d failed: %v", slot, err)
		}
	}
	return img, nil
}

func (s *Stage) scale(img *image.RGBA, width int) image.Image {
	b := img.Bounds()
	size := pipeline.Dimension{Width: b.Dx(), Height: b.Dy()}.ScaleTo(width)
	if size.Width == b.Dx() {
		return img
	}
	return s.renderer.ResizeImage(img, size.Width, size.Height)
}

// FrameImage copies slot of res into a new RGBA image.
func FrameImage(res *extract.Result, slot int) (*image.RGBA, error) {
	data, err := res.Buffer.Frame(slot)
	if err != nil {
		return nil, fmt.Errorf("read slot %d: %w", slot, err)
	}
	w, h := res.Stream.Width, res.Stream.Height
	if len(data) < w*h*ports.OutputChannels {
		return nil, fmt.Errorf("slot %d holds %d bytes, want %d", slot, len(data), w*h*ports.OutputChannels)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i < w*h*ports.OutputChannels; i, j = i+3, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

func missingSet(res *extract.Result) map[int]bool {
	set := make(map[int]bool, len(res.Missing))
	for _, slot := range res.Missing {
		set[slot] = true
	}
	return set
}

// writer tracks the files of one Execute call.
type writer struct {
	stage *Stage
	dir   string
	files []string
	bytes int64
}

func (w *writer) write(name string, data []byte) error {
	path := filepath.Join(w.dir, name)
	if err := w.stage.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.files = append(w.files, path)
	w.bytes += int64(len(data))
	return nil
}

func (w *writer) rollback() {
	for _, path := range w.files {
		if err := w.stage.fs.Remove(path); err != nil {
			w.stage.logger.Warn("Removing %s failed: %v", path, err)
		}
	}
	w.files = nil
	w.bytes = 0
}
