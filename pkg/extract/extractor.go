// Package extract pulls an arbitrary set of frames out of a video stream
// into one contiguous RGB24 buffer, decoding as little as possible.
//
// The requested indices are planned in ascending order, the stream is
// decoded monotonically, large gaps are skipped with at most one coarse
// seek per target, and a decoded frame requested several times is
// converted once and copied to every slot that asked for it.
package extract

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/deepframe/pkg/buffer"
	"github.com/user/deepframe/pkg/plan"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/seek"
	"github.com/user/deepframe/pkg/timeline"
)

// Options configures an Extractor.
type Options struct {
	// SeekThreshold is the frame distance above which a coarse seek is
	// issued instead of decoding sequentially (default: 300).
	SeekThreshold int64

	// ForcedPixelFormat overrides the decoder output format.
	ForcedPixelFormat ports.PixelFormat
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		SeekThreshold: seek.DefaultThreshold,
	}
}

// Extractor runs extraction calls against a decoder engine.
// Calls are independent and may run concurrently when the engine allows it.
type Extractor struct {
	engine ports.DecoderEngine
	logger ports.Logger
	opts   Options
}

// New creates an Extractor.
func New(engine ports.DecoderEngine, logger ports.Logger, opts Options) *Extractor {
	return &Extractor{
		engine: engine,
		logger: logger.WithComponent("extract"),
		opts:   opts,
	}
}

// Extract decodes the frames named by indices from source. Slot i of the
// returned buffer holds frame indices[i]; negative indices mean frame 0.
// Indices past the end of the stream are reported in Result.Missing.
func (e *Extractor) Extract(source string, indices []int64) (*Result, error) {
	p, err := plan.Build(indices)
	if err != nil {
		return nil, err
	}

	r := &run{
		extractor: e,
		source:    source,
		plan:      p,
		state:     StateOpening,
		started:   time.Now(),
	}
	res, err := r.execute()
	if err != nil {
		r.transition(StateFailed)
		e.logger.Debug("Extraction from %s failed in state %s: %v", source, r.state, err)
		return nil, err
	}
	return res, nil
}

// run holds the state of one extraction call.
type run struct {
	extractor *Extractor
	source    string
	plan      plan.Plan
	state     State
	started   time.Time

	container ports.Container
	codec     ports.Codec
	stream    ports.StreamInfo
	timeline  timeline.Timeline
	seeker    *seek.Controller
	matcher   *matcher
	stats     Stats

	packet ports.Packet
	frame  ports.Frame
}

func (r *run) logger() ports.Logger {
	return r.extractor.logger
}

func (r *run) transition(next State) {
	if !r.state.CanTransition(next) {
		r.logger().Debug("Ignoring state transition %s -> %s", r.state, next)
		return
	}
	r.logger().Debug("State %s -> %s", r.state, next)
	r.state = next
}

func (r *run) execute() (*Result, error) {
	e := r.extractor

	container, err := e.engine.Open(r.source)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceOpen, r.source, err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			r.logger().Debug("Closing container failed: %v", err)
		}
	}()
	r.container = container

	stream, err := container.BestVideoStream()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamNotFound, err)
	}
	r.stream = stream
	r.timeline = stream.Timeline()
	r.transition(StateStreamSelected)

	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, stream.Width, stream.Height)
	}
	if !r.timeline.Valid() {
		return nil, fmt.Errorf("%w: frame rate %s, time base %s",
			ErrInvalidTimeline, stream.FrameRate, stream.TimeBase)
	}

	codec, err := container.OpenCodec(stream, ports.CodecOptions{
		ForcedPixelFormat: e.opts.ForcedPixelFormat,
	})
	if err != nil {
		if errors.Is(err, ports.ErrCodecNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrCodecUnavailable, stream.Codec, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCodecContext, err)
	}
	defer func() {
		if err := codec.Close(); err != nil {
			r.logger().Debug("Closing codec failed: %v", err)
		}
	}()
	r.codec = codec

	converter, err := e.engine.NewConverter(stream.Width, stream.Height, codec.PixelFormat())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConverterInit, err)
	}
	r.transition(StateCodecReady)

	buf, err := buffer.New(r.plan.Len(), stream.Height, stream.Width, ports.OutputChannels)
	if err != nil {
		return nil, fmt.Errorf("extract: allocate output: %w", err)
	}

	r.logger().Debug("Extracting %d frames (%d distinct) from %s: %dx%d, %s fps, time base %s",
		r.plan.Len(), r.plan.Distinct(), r.source, stream.Width, stream.Height,
		stream.FrameRate, stream.TimeBase)

	r.seeker = seek.New(e.opts.SeekThreshold)
	r.seeker.Advance(r.plan.First())
	r.matcher = newMatcher(r.plan, buf, converter, r.seeker, stream.Width, stream.Height, &r.stats, r.logger())

	if first := r.plan.First(); first > 0 {
		r.seekTo(first)
		r.seeker.MarkAttempted()
	} else {
		r.transition(StateDecoding)
	}

	if err := r.decode(); err != nil {
		return nil, err
	}
	r.transition(StateDone)

	r.stats.Duration = time.Since(r.started)
	res := &Result{
		Buffer:  buf,
		Missing: r.matcher.Missing(),
		Stream:  stream,
		Stats:   r.stats,
		State:   r.state,
	}
	if !res.Complete() {
		r.logger().Warn("%d of %d requested frames were not found in %s",
			len(res.Missing), r.plan.Len(), r.source)
	}
	return res, nil
}

// decode alternates the main and drain phases until the plan is satisfied
// or the input is exhausted without a seek pending.
func (r *run) decode() error {
	for {
		if err := r.mainPhase(); err != nil {
			return err
		}
		if r.matcher.Done() {
			return nil
		}

		r.transition(StateDraining)
		sought, err := r.drainPhase()
		if err != nil {
			return err
		}
		if !sought || r.matcher.Done() {
			return nil
		}
	}
}

func (r *run) mainPhase() error {
	for !r.matcher.Done() {
		err := r.container.ReadPacket(&r.packet)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: read packet: %w", err)
		}
		r.stats.PacketsRead++

		if r.packet.StreamIndex != r.stream.Index {
			continue
		}
		if err := r.codec.SendPacket(&r.packet); err != nil {
			r.logger().Debug("Decoder rejected packet (pts %d): %v", r.packet.PTS, err)
			continue
		}
		if _, err := r.receive(); err != nil {
			return err
		}
	}
	return nil
}

// drainPhase flushes the frames buffered inside the codec. It reports
// whether a seek interrupted the drain, in which case reading resumes.
func (r *run) drainPhase() (bool, error) {
	if err := r.codec.SendPacket(nil); err != nil {
		r.logger().Debug("Entering drain mode failed: %v", err)
	}
	return r.receive()
}

// receive pulls frames until the codec needs input, is drained, the plan
// is done, or a seek abandons the current iteration.
func (r *run) receive() (bool, error) {
	for !r.matcher.Done() {
		err := r.codec.ReceiveFrame(&r.frame)
		if errors.Is(err, ports.ErrAgain) || errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			r.logger().Warn("Decoding failed: %v", err)
			return false, nil
		}
		r.stats.FramesDecoded++
		if r.frame.PTS == timeline.NoPTS {
			r.logger().Debug("Skipping frame without timestamp")
			r.stats.SkippedFrames++
			continue
		}

		n := r.timeline.FrameNumber(r.frame.PTS)
		if r.seeker.Decide(n) == seek.Seek {
			r.logger().Debug("Frame %d is %d frames before target %d, seeking",
				n, r.seeker.Target()-n, r.seeker.Target())
			r.seekTo(r.seeker.Target())
			return true, nil
		}

		if err := r.matcher.Match(&r.frame, n); err != nil {
			return false, err
		}
	}
	return false, nil
}

// seekTo positions the container near frame and discards decoder state.
func (r *run) seekTo(frame int64) {
	r.transition(StateSeeking)
	ts := r.timeline.Timestamp(frame)
	if err := r.container.Seek(r.stream.Index, ts); err != nil {
		r.logger().Warn("Seek to frame %d failed, decoding sequentially: %v", frame, err)
	}
	if err := r.codec.Flush(); err != nil {
		r.logger().Warn("Flushing decoder failed: %v", err)
	}
	r.stats.Seeks++
	r.transition(StateDecoding)
}
