// Package mocks provides mock implementations for testing.
package mocks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/user/deepframe/pkg/adapters/pixconv"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/timeline"
)

// Video scripts a synthetic video stream for Engine.
//
// Every frame is packed RGB24 and its bytes are given by PixelValue, so
// tests can check which frame landed in which slot.
type Video struct {
	Frames    int
	Width     int
	Height    int
	Codec     string
	FrameRate timeline.Rational
	TimeBase  timeline.Rational
	StartTime int64

	// GOP is the keyframe interval in frames. Zero means only frame 0 is a keyframe.
	GOP int

	// Latency is the number of frames the codec buffers before output.
	Latency int

	// AudioEvery interleaves one packet of stream 1 after every n video packets.
	AudioEvery int

	// PTS overrides the timestamp of individual frames.
	PTS map[int]int64

	// Size overrides the decoded geometry of individual frames.
	Size map[int][2]int

	// FailAfter makes ReceiveFrame fail once this many frames were output. Zero disables.
	FailAfter int
}

// NewVideo returns a Video with 25 fps, time base 1/12800 and keyframes every 25 frames.
func NewVideo(frames, width, height int) *Video {
	return &Video{
		Frames:    frames,
		Width:     width,
		Height:    height,
		Codec:     "h264",
		FrameRate: timeline.Rational{Num: 25, Den: 1},
		TimeBase:  timeline.Rational{Num: 1, Den: 12800},
		GOP:       25,
	}
}

func (v *Video) timeline() timeline.Timeline {
	return timeline.Timeline{FrameRate: v.FrameRate, TimeBase: v.TimeBase, StartTime: v.StartTime}
}

// Timestamp returns the presentation timestamp of frame.
func (v *Video) Timestamp(frame int) int64 {
	if pts, ok := v.PTS[frame]; ok {
		return pts
	}
	return v.timeline().Timestamp(int64(frame))
}

func (v *Video) keyframe(frame int) bool {
	if v.GOP <= 0 {
		return frame == 0
	}
	return frame%v.GOP == 0
}

func (v *Video) size(frame int) (int, int) {
	if s, ok := v.Size[frame]; ok {
		return s[0], s[1]
	}
	return v.Width, v.Height
}

// PixelValue returns byte i of frame in its RGB24 rendition.
func PixelValue(frame, i int) byte {
	return byte(frame*31 + i*7 + 1)
}

// FrameBytes returns the RGB24 rendition of frame at the given size.
func FrameBytes(frame, width, height int) []byte {
	data := make([]byte, width*height*ports.OutputChannels)
	for i := range data {
		data[i] = PixelValue(frame, i)
	}
	return data
}

// Engine is a scripted implementation of ports.DecoderEngine.
type Engine struct {
	mu     sync.Mutex
	videos map[string]*Video

	OpenErr      error
	StreamErr    error
	CodecErr     error
	ConverterErr error

	// Recorded calls.
	Opened     []string
	Seeks      []int64
	Flushes    int
	Sent       int
	Closed     int
	CodecsOpen int
}

// NewEngine creates an Engine with no sources.
func NewEngine() *Engine {
	return &Engine{videos: make(map[string]*Video)}
}

// Add registers video under source.
func (e *Engine) Add(source string, video *Video) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.videos[source] = video
	return e
}

func (e *Engine) Open(source string) (ports.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Opened = append(e.Opened, source)
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	v, ok := e.videos[source]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", source, os.ErrNotExist)
	}
	return newContainer(e, v), nil
}

func (e *Engine) NewConverter(width, height int, src ports.PixelFormat) (ports.Converter, error) {
	if e.ConverterErr != nil {
		return nil, e.ConverterErr
	}
	return pixconv.New(width, height, src)
}

// SeekCount returns the number of Seek calls (for test verification).
func (e *Engine) SeekCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Seeks)
}

func (e *Engine) record(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

var _ ports.DecoderEngine = (*Engine)(nil)

// packetRef identifies one packet of the scripted stream.
type packetRef struct {
	stream int
	frame  int
}

type container struct {
	engine  *Engine
	video   *Video
	packets []packetRef
	pos     int
	data    []byte
}

func newContainer(e *Engine, v *Video) *container {
	c := &container{engine: e, video: v, data: make([]byte, 4)}
	for f := 0; f < v.Frames; f++ {
		c.packets = append(c.packets, packetRef{stream: 0, frame: f})
		if v.AudioEvery > 0 && (f+1)%v.AudioEvery == 0 {
			c.packets = append(c.packets, packetRef{stream: 1, frame: f})
		}
	}
	return c
}

func (c *container) BestVideoStream() (ports.StreamInfo, error) {
	if c.engine.StreamErr != nil {
		return ports.StreamInfo{}, c.engine.StreamErr
	}
	v := c.video
	var duration int64
	if tl := v.timeline(); tl.Valid() {
		duration = tl.Timestamp(int64(v.Frames)) - tl.Start()
	}
	return ports.StreamInfo{
		Index:      0,
		Codec:      v.Codec,
		Width:      v.Width,
		Height:     v.Height,
		FrameRate:  v.FrameRate,
		TimeBase:   v.TimeBase,
		StartTime:  v.StartTime,
		FrameCount: int64(v.Frames),
		Duration:   duration,
	}, nil
}

func (c *container) OpenCodec(stream ports.StreamInfo, opts ports.CodecOptions) (ports.Codec, error) {
	if c.engine.CodecErr != nil {
		return nil, c.engine.CodecErr
	}
	c.engine.record(func() { c.engine.CodecsOpen++ })
	return &codec{engine: c.engine, video: c.video, needKey: true}, nil
}

func (c *container) ReadPacket(pkt *ports.Packet) error {
	if c.pos >= len(c.packets) {
		return io.EOF
	}
	ref := c.packets[c.pos]
	c.pos++

	c.data[0] = byte(ref.frame >> 24)
	c.data[1] = byte(ref.frame >> 16)
	c.data[2] = byte(ref.frame >> 8)
	c.data[3] = byte(ref.frame)

	pts := c.video.Timestamp(ref.frame)
	*pkt = ports.Packet{
		StreamIndex: ref.stream,
		PTS:         pts,
		DTS:         pts,
		Keyframe:    ref.stream == 0 && c.video.keyframe(ref.frame),
		Data:        c.data,
	}
	return nil
}

// Seek positions at the last keyframe with a timestamp at or before ts.
func (c *container) Seek(streamIndex int, ts int64) error {
	c.engine.record(func() { c.engine.Seeks = append(c.engine.Seeks, ts) })
	target := 0
	for f := 0; f < c.video.Frames; f++ {
		if c.video.keyframe(f) && c.video.Timestamp(f) <= ts {
			target = f
		}
	}
	for i, ref := range c.packets {
		if ref.stream == 0 && ref.frame == target {
			c.pos = i
			return nil
		}
	}
	c.pos = len(c.packets)
	return nil
}

func (c *container) Close() error {
	c.engine.record(func() { c.engine.Closed++ })
	return nil
}

type codec struct {
	engine   *Engine
	video    *Video
	queue    []int
	draining bool
	needKey  bool
	output   int
	plane    []byte
}

func (c *codec) SendPacket(pkt *ports.Packet) error {
	if pkt == nil {
		c.draining = true
		return nil
	}
	if c.draining {
		return errors.New("mock codec: packet sent while draining")
	}
	if pkt.Keyframe {
		c.needKey = false
	}
	if c.needKey {
		return nil
	}
	c.engine.record(func() { c.engine.Sent++ })
	frame := int(pkt.Data[0])<<24 | int(pkt.Data[1])<<16 | int(pkt.Data[2])<<8 | int(pkt.Data[3])
	c.queue = append(c.queue, frame)
	return nil
}

func (c *codec) ReceiveFrame(frame *ports.Frame) error {
	if c.video.FailAfter > 0 && c.output >= c.video.FailAfter {
		return errors.New("mock codec: decode error")
	}
	if len(c.queue) == 0 {
		if c.draining {
			return io.EOF
		}
		return ports.ErrAgain
	}
	if !c.draining && len(c.queue) <= c.video.Latency {
		return ports.ErrAgain
	}

	n := c.queue[0]
	c.queue = c.queue[1:]
	c.output++

	w, h := c.video.size(n)
	c.plane = FrameBytes(n, w, h)
	*frame = ports.Frame{
		PTS:     c.video.Timestamp(n),
		Width:   w,
		Height:  h,
		Format:  ports.PixelFormatRGB24,
		Planes:  [][]byte{c.plane},
		Strides: []int{w * ports.OutputChannels},
	}
	return nil
}

func (c *codec) Flush() error {
	c.engine.record(func() { c.engine.Flushes++ })
	c.queue = c.queue[:0]
	c.draining = false
	c.needKey = true
	return nil
}

func (c *codec) PixelFormat() ports.PixelFormat {
	return ports.PixelFormatRGB24
}

func (c *codec) Close() error {
	return nil
}
