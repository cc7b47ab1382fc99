// Package mp4engine implements ports.DecoderEngine for local MP4 files.
// Demuxing uses mp4ff, decoding runs through ffmpegcodec and pixel
// conversion through pixconv.
package mp4engine

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/deepframe/pkg/adapters/pixconv"
	"github.com/user/deepframe/pkg/ports"
)

// ErrUnsupportedSource is returned for sources that are not local files.
var ErrUnsupportedSource = errors.New("mp4engine: only local files are supported")

// Options configures the Engine.
type Options struct {
	// FFmpegPath overrides ffmpeg discovery.
	FFmpegPath string

	// PixelFormat is the decoder output format unless a codec call forces
	// another one (default: yuv420p).
	PixelFormat ports.PixelFormat
}

// Engine opens MP4 containers.
type Engine struct {
	opts   Options
	logger ports.Logger
}

// New creates an Engine.
func New(opts Options, logger ports.Logger) *Engine {
	return &Engine{
		opts:   opts,
		logger: logger.WithComponent("mp4engine"),
	}
}

// Open parses the MP4 at source, a path or file:// URL.
func (e *Engine) Open(source string) (ports.Container, error) {
	path, err := localPath(source)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	mp4File, err := mp4.DecodeFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	t, err := indexFile(mp4File)
	if err != nil && !errors.Is(err, ports.ErrNoVideoStream) {
		f.Close()
		return nil, err
	}
	if t != nil {
		e.logger.Debug("Indexed %s: track %d, %s %dx%d, %d samples, timescale %d",
			path, t.id, t.codec, t.width, t.height, len(t.samples), t.timescale)
	}

	return &container{engine: e, file: f, track: t}, nil
}

// NewConverter creates a converter to packed RGB24.
func (e *Engine) NewConverter(width, height int, src ports.PixelFormat) (ports.Converter, error) {
	return pixconv.New(width, height, src)
}

// localPath accepts plain paths and file:// URLs.
func localPath(source string) (string, error) {
	if !strings.Contains(source, "://") {
		return source, nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, u.Scheme)
	}
	return u.Path, nil
}

var _ ports.DecoderEngine = (*Engine)(nil)
