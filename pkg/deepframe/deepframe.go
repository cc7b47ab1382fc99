// Package deepframe provides a high-level API for extracting frames from video files.
package deepframe

import (
	"fmt"

	"github.com/user/deepframe/pkg/adapters/logger"
	"github.com/user/deepframe/pkg/adapters/mp4engine"
	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/indices"
	"github.com/user/deepframe/pkg/info"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/seek"
)

// Options configures frame extraction.
type Options struct {
	// Decoding
	SeekThreshold int64             // Frame distance above which a coarse seek is issued (default: 300)
	PixelFormat   ports.PixelFormat // Forced decoder output format (default: native)
	FFmpegPath    string            // ffmpeg binary (default: discovered)

	// Engine replaces the default MP4 engine when set.
	Engine ports.DecoderEngine

	// Logger receives progress messages (default: silent).
	Logger ports.Logger
}

// OptionsBuilder provides a fluent interface for building Options.
type OptionsBuilder struct {
	options Options
}

// NewOptionsBuilder creates a new OptionsBuilder with default values.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{
		options: Options{
			SeekThreshold: seek.DefaultThreshold,
		},
	}
}

// Build returns the final Options, applying defaults for unset values.
func (b *OptionsBuilder) Build() Options {
	opts := b.options

	// A non-positive threshold would seek before every target
	if opts.SeekThreshold <= 0 {
		opts.SeekThreshold = seek.DefaultThreshold
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewNoop()
	}

	return opts
}

// WithSeekThreshold sets the seek threshold in frames.
// Values of 0 or below fall back to the default.
func (b *OptionsBuilder) WithSeekThreshold(frames int64) *OptionsBuilder {
	b.options.SeekThreshold = frames
	return b
}

// WithPixelFormat forces the decoder output pixel format.
func (b *OptionsBuilder) WithPixelFormat(format ports.PixelFormat) *OptionsBuilder {
	b.options.PixelFormat = format
	return b
}

// WithFFmpegPath sets the ffmpeg binary used for decoding.
func (b *OptionsBuilder) WithFFmpegPath(path string) *OptionsBuilder {
	b.options.FFmpegPath = path
	return b
}

// WithEngine replaces the default MP4 engine.
func (b *OptionsBuilder) WithEngine(engine ports.DecoderEngine) *OptionsBuilder {
	b.options.Engine = engine
	return b
}

// WithLogger sets the logger.
func (b *OptionsBuilder) WithLogger(l ports.Logger) *OptionsBuilder {
	b.options.Logger = l
	return b
}

func (o Options) logger() ports.Logger {
	if o.Logger == nil {
		return logger.NewNoop()
	}
	return o.Logger
}

func (o Options) engine() ports.DecoderEngine {
	if o.Engine != nil {
		return o.Engine
	}
	return mp4engine.New(mp4engine.Options{
		FFmpegPath:  o.FFmpegPath,
		PixelFormat: o.PixelFormat,
	}, o.logger())
}

// ExtractOptions converts Options to extract.Options.
func (o Options) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	if o.SeekThreshold > 0 {
		opts.SeekThreshold = o.SeekThreshold
	}
	opts.ForcedPixelFormat = o.PixelFormat
	return opts
}

// Extractor returns an extractor bound to the configured engine.
func (o Options) Extractor() *extract.Extractor {
	return extract.New(o.engine(), o.logger(), o.ExtractOptions())
}

// ExtractFrames decodes the frames named by indices from source into one
// buffer of shape (len(indices), height, width, 3).
func ExtractFrames(source string, frames []int64, opts Options) (*extract.Result, error) {
	return opts.Extractor().Extract(source, frames)
}

// ExtractSelection parses a selection expression such as "0,10:20,::-5"
// and extracts the frames it names. Open-ended slices are resolved
// against the stream's frame count.
func ExtractSelection(source, expr string, opts Options) (*extract.Result, error) {
	sel, err := indices.Parse(expr)
	if err != nil {
		return nil, err
	}

	length := int64(0)
	engine := opts.engine()
	if sel.NeedsLength() {
		stream, err := info.Stream(engine, source)
		if err != nil {
			return nil, err
		}
		length = info.FrameCount(stream)
		if length <= 0 {
			return nil, fmt.Errorf("%w: frame count of %s is unknown", indices.ErrUnbounded, source)
		}
	}

	frames, err := sel.Indices(length)
	if err != nil {
		return nil, err
	}
	return extract.New(engine, opts.logger(), opts.ExtractOptions()).Extract(source, frames)
}

// GetInfo describes the video stream of source without decoding frames.
func GetInfo(source string, opts Options) (map[string]float64, error) {
	return info.Get(opts.engine(), source)
}
