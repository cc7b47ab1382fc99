// Package ffmpegcodec decodes Annex B H.264 and HEVC packets by piping them
// through an ffmpeg child process that writes raw frames to stdout.
package ffmpegcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/user/deepframe/pkg/adapters/pixconv"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/timeline"
)

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpegcodec: ffmpeg not found")

	// ErrUnsupportedCodec is returned for codecs ffmpeg is not asked to handle.
	ErrUnsupportedCodec = errors.New("ffmpegcodec: unsupported codec")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ffmpegcodec: codec closed")

	// ErrDraining is returned when a packet is sent after draining began.
	ErrDraining = errors.New("ffmpegcodec: packet sent while draining")

	// ErrExited is returned when ffmpeg stops before its input was closed.
	ErrExited = errors.New("ffmpegcodec: ffmpeg exited before input ended")

	// ErrFrameCountMismatch is returned when ffmpeg emits a different
	// number of pictures than it was sent packets.
	ErrFrameCountMismatch = errors.New("ffmpegcodec: decoded frame count does not match packets")
)

// demuxers maps codec names to ffmpeg elementary stream input formats.
var demuxers = map[string]string{
	"h264": "h264",
	"hevc": "hevc",
}

// Supports reports whether codec can be decoded.
func Supports(codec string) bool {
	_, ok := demuxers[codec]
	return ok
}

// Config configures a Codec.
type Config struct {
	FFmpegPath  string
	Codec       string
	Width       int
	Height      int
	PixelFormat ports.PixelFormat // default: yuv420p
	Logger      ports.Logger
}

// Codec implements ports.Codec on top of an ffmpeg process.
// The process starts lazily on the first packet and restarts after Flush.
//
// Raw video output carries no timestamps, so every picture takes the
// smallest pending packet PTS. That pairing needs one picture per packet:
// leading pictures of the keyframe a run starts on are never sent, and
// ffmpeg runs with -xerror so it fails instead of dropping a picture.
type Codec struct {
	path    string
	demuxer string
	width   int
	height  int
	format  ports.PixelFormat
	sizes   []int
	strides []int
	size    int
	logger  ports.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	proc     *process
	pending  ptsQueue
	draining bool
	closed   bool

	sent     int   // packets written since the last Flush
	anchor   int64 // PTS of the keyframe the run started on
	anchored bool  // leading pictures of anchor are still possible
}

// New validates cfg and locates ffmpeg. No process is started yet.
func New(cfg Config) (*Codec, error) {
	demuxer, ok := demuxers[cfg.Codec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, cfg.Codec)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("ffmpegcodec: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	format := cfg.PixelFormat
	if format == ports.PixelFormatNone {
		format = ports.PixelFormatYUV420P
	}
	if !pixconv.Supported(format) {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedPixelFormat, format)
	}

	path, err := Find(cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}

	sizes, strides := pixconv.PlaneLayout(format, cfg.Width, cfg.Height)
	c := &Codec{
		path:    path,
		demuxer: demuxer,
		width:   cfg.Width,
		height:  cfg.Height,
		format:  format,
		sizes:   sizes,
		strides: strides,
		size:    pixconv.FrameSize(format, cfg.Width, cfg.Height),
		logger:  cfg.Logger,
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// Args returns the ffmpeg command line used for decoding.
func (c *Codec) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-xerror",
		"-f", c.demuxer,
		"-i", "pipe:0",
		"-an",
		"-fps_mode", "passthrough",
		"-s", fmt.Sprintf("%dx%d", c.width, c.height),
		"-pix_fmt", string(c.format),
		"-f", "rawvideo",
		"pipe:1",
	}
}

// SendPacket writes pkt to ffmpeg. A nil packet closes its input so the
// remaining frames can be drained.
func (c *Codec) SendPacket(pkt *ports.Packet) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if pkt == nil {
		c.draining = true
		p := c.proc
		c.mu.Unlock()
		if p != nil {
			return p.closeInput()
		}
		return nil
	}
	if c.draining {
		c.mu.Unlock()
		return ErrDraining
	}

	pts := pkt.PTS
	if pts == timeline.NoPTS {
		pts = pkt.DTS
	}
	if c.leadingPicture(pkt.Keyframe, pts) {
		anchor := c.anchor
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Debug("Dropping leading picture (pts %d) of keyframe %d", pts, anchor)
		}
		return nil
	}

	if c.proc == nil {
		p, err := c.start()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.proc = p
	}
	p := c.proc
	c.pending.add(pts)
	c.mu.Unlock()

	// Writing without the lock lets the reader keep ffmpeg's stdout moving.
	if _, err := p.stdin.Write(pkt.Data); err != nil {
		return fmt.Errorf("ffmpegcodec: write packet: %w", err)
	}
	return nil
}

// leadingPicture reports whether a packet is presented before the keyframe
// that started the run and follows it before the next keyframe. Such
// pictures reference frames that were never sent and produce no output.
// The caller holds c.mu.
func (c *Codec) leadingPicture(key bool, pts int64) bool {
	switch {
	case c.sent == 0:
		c.anchor, c.anchored = pts, key && pts != timeline.NoPTS
	case key:
		c.anchored = false
	case c.anchored && pts != timeline.NoPTS && pts < c.anchor:
		return true
	}
	c.sent++
	return false
}

// ReceiveFrame returns the next decoded frame. Before draining it never
// blocks and returns ports.ErrAgain when nothing is ready.
func (c *Codec) ReceiveFrame(frame *ports.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	p := c.proc
	if p == nil {
		if c.draining {
			return io.EOF
		}
		return ports.ErrAgain
	}

	for {
		if len(p.frames) > 0 {
			data := p.frames[0]
			p.frames[0] = nil
			p.frames = p.frames[1:]
			return c.fill(frame, data)
		}
		if p.done {
			if p.err != nil {
				return p.err
			}
			if !c.draining {
				return ErrExited
			}
			if n := c.pending.Len(); n > 0 {
				return fmt.Errorf("%w: %d packets produced no frame", ErrFrameCountMismatch, n)
			}
			return io.EOF
		}
		if !c.draining {
			return ports.ErrAgain
		}
		c.cond.Wait()
	}
}

func (c *Codec) fill(frame *ports.Frame, data []byte) error {
	pts, ok := c.pending.next()
	if !ok {
		return fmt.Errorf("%w: frame without a pending packet", ErrFrameCountMismatch)
	}

	planes := make([][]byte, len(c.sizes))
	offset := 0
	for i, n := range c.sizes {
		planes[i] = data[offset : offset+n]
		offset += n
	}

	*frame = ports.Frame{
		PTS:     pts,
		Width:   c.width,
		Height:  c.height,
		Format:  c.format,
		Planes:  planes,
		Strides: c.strides,
	}
	return nil
}

// Flush stops the running process and forgets all pending input.
func (c *Codec) Flush() error {
	c.mu.Lock()
	p := c.proc
	c.proc = nil
	c.pending.reset()
	c.draining = false
	c.sent = 0
	c.mu.Unlock()

	if p != nil {
		p.stop()
	}
	return nil
}

// PixelFormat returns the raw format ffmpeg is asked to produce.
func (c *Codec) PixelFormat() ports.PixelFormat {
	return c.format
}

// Close stops the process. Further calls return ErrClosed.
func (c *Codec) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	p := c.proc
	c.proc = nil
	c.mu.Unlock()

	if p != nil {
		p.stop()
	}
	return nil
}

// start launches ffmpeg. The caller holds c.mu.
func (c *Codec) start() (*process, error) {
	cmd := exec.Command(c.path, c.Args()...)
	p := &process{cmd: cmd, exited: make(chan struct{})}
	cmd.Stderr = &p.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpegcodec: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpegcodec: stdout pipe: %w", err)
	}
	p.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpegcodec: start ffmpeg: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("Started ffmpeg: %s %s", c.path, strings.Join(c.Args(), " "))
	}

	go c.read(p, stdout)
	return p, nil
}

// read collects frames from stdout until ffmpeg exits.
func (c *Codec) read(p *process, stdout io.Reader) {
	defer close(p.exited)

	for {
		buf := make([]byte, c.size)
		_, err := io.ReadFull(stdout, buf)
		if err != nil {
			waitErr := p.cmd.Wait()

			c.mu.Lock()
			p.done = true
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				p.err = fmt.Errorf("ffmpegcodec: read frame: %w", err)
			} else if waitErr != nil && !p.stopped.Load() {
				p.err = fmt.Errorf("ffmpegcodec: ffmpeg failed: %w: %s",
					waitErr, strings.TrimSpace(p.stderr.String()))
			}
			c.cond.Broadcast()
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		p.frames = append(p.frames, buf)
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

var _ ports.Codec = (*Codec)(nil)

// process is one ffmpeg invocation. frames, done and err are guarded by
// the owning Codec's mutex.
type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	exited  chan struct{}
	frames  [][]byte
	done    bool
	err     error
	stopped atomic.Bool

	closeOnce sync.Once
}

func (p *process) closeInput() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.stdin.Close()
	})
	return err
}

// stop kills ffmpeg and waits for the reader to finish.
func (p *process) stop() {
	p.stopped.Store(true)
	_ = p.closeInput()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.exited
}
