// Package info reads stream metadata without decoding any frame.
package info

import (
	"fmt"
	"math"

	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/ports"
)

// Keys of the map returned by Get.
const (
	KeyWidth       = "width"
	KeyHeight      = "height"
	KeyNumChannels = "num_channels"
	KeyNumFrames   = "num_frames"
	KeyFPS         = "fps"
	KeyDuration    = "duration"
	KeyTimeBaseNum = "time_base_num"
	KeyTimeBaseDen = "time_base_den"
)

// Get opens source once and describes its video stream. duration is in
// time base units. num_frames is estimated from fps and duration when the
// container carries no frame count.
func Get(engine ports.DecoderEngine, source string) (map[string]float64, error) {
	stream, err := Stream(engine, source)
	if err != nil {
		return nil, err
	}
	return Map(stream), nil
}

// Stream opens source and returns its selected video stream.
func Stream(engine ports.DecoderEngine, source string) (ports.StreamInfo, error) {
	container, err := engine.Open(source)
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("%w %s: %w", extract.ErrSourceOpen, source, err)
	}
	defer container.Close()

	stream, err := container.BestVideoStream()
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("%w: %w", extract.ErrStreamNotFound, err)
	}
	return stream, nil
}

// Map converts stream facts to the metadata map.
func Map(stream ports.StreamInfo) map[string]float64 {
	fps := stream.FrameRate.Float64()
	return map[string]float64{
		KeyWidth:       float64(stream.Width),
		KeyHeight:      float64(stream.Height),
		KeyNumChannels: ports.OutputChannels,
		KeyNumFrames:   float64(FrameCount(stream)),
		KeyFPS:         fps,
		KeyDuration:    float64(stream.Duration),
		KeyTimeBaseNum: float64(stream.TimeBase.Num),
		KeyTimeBaseDen: float64(stream.TimeBase.Den),
	}
}

// FrameCount returns the container's frame count, or fps * duration *
// time base rounded down when the container has none.
func FrameCount(stream ports.StreamInfo) int64 {
	if stream.FrameCount > 0 {
		return stream.FrameCount
	}
	seconds := float64(stream.Duration) * stream.TimeBase.Float64()
	return int64(math.Floor(stream.FrameRate.Float64() * seconds))
}
