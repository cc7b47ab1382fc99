package ports

import (
	"errors"

	"github.com/user/deepframe/pkg/timeline"
)

var (
	// ErrAgain is returned by Codec.ReceiveFrame when the codec needs more input.
	ErrAgain = errors.New("ports: decoder needs more input")

	// ErrNoVideoStream is returned by Container.BestVideoStream when the
	// container has no decodable video track.
	ErrNoVideoStream = errors.New("ports: no video stream")

	// ErrCodecNotFound is returned by Container.OpenCodec when no decoder
	// exists for the stream's codec.
	ErrCodecNotFound = errors.New("ports: codec not found")

	// ErrUnsupportedPixelFormat is returned by DecoderEngine.NewConverter.
	ErrUnsupportedPixelFormat = errors.New("ports: unsupported pixel format")
)

// PixelFormat names a raw pixel layout using ffmpeg's pix_fmt vocabulary.
type PixelFormat string

const (
	PixelFormatNone    PixelFormat = ""
	PixelFormatYUV420P PixelFormat = "yuv420p"
	PixelFormatNV12    PixelFormat = "nv12"
	PixelFormatGray    PixelFormat = "gray"
	PixelFormatRGB24   PixelFormat = "rgb24"
	PixelFormatRGBA    PixelFormat = "rgba"
)

// OutputChannels is the channel count of every converted frame (packed RGB24).
const OutputChannels = 3

// StreamInfo describes the selected video stream.
type StreamInfo struct {
	Index      int
	Codec      string
	Width      int
	Height     int
	FrameRate  timeline.Rational // average frame rate
	TimeBase   timeline.Rational // seconds per timestamp tick
	StartTime  int64             // timeline.NoPTS when unknown
	FrameCount int64             // 0 when the container does not say
	Duration   int64             // in TimeBase units, 0 when unknown
}

// Timeline returns the timestamp/frame-number mapping of the stream.
func (s StreamInfo) Timeline() timeline.Timeline {
	return timeline.Timeline{
		FrameRate: s.FrameRate,
		TimeBase:  s.TimeBase,
		StartTime: s.StartTime,
	}
}

// Packet is one encoded unit read from a container.
// Data is only valid until the next ReadPacket call.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Keyframe    bool
	Data        []byte
}

// Frame is a decoded picture. It is owned by the codec and is overwritten
// by the next ReceiveFrame call.
type Frame struct {
	PTS     int64
	Width   int
	Height  int
	Format  PixelFormat
	Planes  [][]byte
	Strides []int
}

// CodecOptions configures codec opening.
type CodecOptions struct {
	// ForcedPixelFormat overrides the decoder's output pixel format.
	ForcedPixelFormat PixelFormat
}

// DecoderEngine abstracts container demuxing, decoding and pixel conversion.
type DecoderEngine interface {
	// Open opens a container for reading.
	Open(source string) (Container, error)

	// NewConverter creates a converter from src frames of the given size to packed RGB24.
	NewConverter(width, height int, src PixelFormat) (Converter, error)
}

// Container is an opened media source.
type Container interface {
	// BestVideoStream selects the video stream to decode.
	BestVideoStream() (StreamInfo, error)

	// OpenCodec opens a decoder for the stream.
	OpenCodec(stream StreamInfo, opts CodecOptions) (Codec, error)

	// ReadPacket reads the next packet into pkt. Returns io.EOF at end of input.
	ReadPacket(pkt *Packet) error

	// Seek positions the reader at the last keyframe whose timestamp is at
	// or before ts (in the stream's time base).
	Seek(streamIndex int, ts int64) error

	// Close releases the container.
	Close() error
}

// Codec is an opened decoder.
type Codec interface {
	// SendPacket submits an encoded packet. A nil packet starts draining.
	SendPacket(pkt *Packet) error

	// ReceiveFrame fills frame with the next decoded picture.
	// Returns ErrAgain when more input is needed and io.EOF once drained.
	ReceiveFrame(frame *Frame) error

	// Flush discards all buffered state, e.g. after a seek.
	Flush() error

	// PixelFormat returns the format of decoded frames.
	PixelFormat() PixelFormat

	// Close releases the decoder.
	Close() error
}

// Converter converts decoded frames to packed RGB24.
type Converter interface {
	// Convert writes frame as packed RGB24 rows into dst,
	// which must hold at least width*height*3 bytes.
	Convert(frame *Frame, dst []byte) error
}
