package mp4engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/user/deepframe/pkg/adapters/ffmpegcodec"
	"github.com/user/deepframe/pkg/ports"
)

// container reads the indexed video track of one open file.
type container struct {
	engine *Engine
	file   *os.File
	track  *track
	pos    int
	raw    []byte
	packet []byte
}

func (c *container) BestVideoStream() (ports.StreamInfo, error) {
	if c.track == nil {
		return ports.StreamInfo{}, ports.ErrNoVideoStream
	}
	return c.track.streamInfo(), nil
}

func (c *container) OpenCodec(stream ports.StreamInfo, opts ports.CodecOptions) (ports.Codec, error) {
	if !ffmpegcodec.Supports(stream.Codec) {
		return nil, fmt.Errorf("%w: %s", ports.ErrCodecNotFound, stream.Codec)
	}

	format := opts.ForcedPixelFormat
	if format == ports.PixelFormatNone {
		format = c.engine.opts.PixelFormat
	}

	codec, err := ffmpegcodec.New(ffmpegcodec.Config{
		FFmpegPath:  c.engine.opts.FFmpegPath,
		Codec:       stream.Codec,
		Width:       stream.Width,
		Height:      stream.Height,
		PixelFormat: format,
		Logger:      c.engine.logger,
	})
	if errors.Is(err, ffmpegcodec.ErrFFmpegNotFound) {
		return nil, fmt.Errorf("%w: %w", ports.ErrCodecNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return codec, nil
}

// ReadPacket returns video samples in decode order as Annex B packets.
// Keyframes carry the out-of-band parameter sets in front.
func (c *container) ReadPacket(pkt *ports.Packet) error {
	if c.track == nil || c.pos >= len(c.track.samples) {
		return io.EOF
	}

	i := c.pos
	c.pos++

	raw, err := c.track.read(c.file, i, c.raw)
	if err != nil {
		return err
	}
	if c.track.samples[i].data == nil {
		c.raw = raw
	}

	s := c.track.samples[i]
	data := c.packet[:0]
	if s.key {
		data = append(data, c.track.paramSets...)
	}
	data = avccToAnnexB(data, raw)
	c.packet = data

	*pkt = ports.Packet{
		StreamIndex: c.track.index,
		PTS:         s.pts,
		DTS:         s.dts,
		Keyframe:    s.key,
		Data:        data,
	}
	return nil
}

// Seek moves to the last keyframe presented at or before ts.
func (c *container) Seek(streamIndex int, ts int64) error {
	if c.track == nil || streamIndex != c.track.index {
		return fmt.Errorf("mp4engine: no stream %d", streamIndex)
	}
	if len(c.track.samples) == 0 {
		return nil
	}
	c.pos = c.track.seekIndex(ts)
	c.engine.logger.Debug("Seek to %d lands on sample %d (pts %d)",
		ts, c.pos+1, c.track.samples[c.pos].pts)
	return nil
}

func (c *container) Close() error {
	return c.file.Close()
}
