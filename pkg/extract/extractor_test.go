package extract

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/deepframe/pkg/mocks"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/timeline"
)

const testSource = "clip.mp4"

func newTestExtractor(t *testing.T, video *mocks.Video, opts Options) (*Extractor, *mocks.Engine, *mocks.Logger) {
	t.Helper()
	engine := mocks.NewEngine().Add(testSource, video)
	log := mocks.NewLogger()
	return New(engine, log, opts), engine, log
}

func slot(t *testing.T, res *Result, i int) []byte {
	t.Helper()
	data, err := res.Buffer.Frame(i)
	require.NoError(t, err)
	return data
}

func TestExtract_DuplicatesAndOrder(t *testing.T) {
	ex, engine, _ := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, []int64{5, 2, 2, 0})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 4, 4, 3}, res.Buffer.Dims())
	assert.Equal(t, mocks.FrameBytes(5, 4, 4), slot(t, res, 0))
	assert.Equal(t, mocks.FrameBytes(2, 4, 4), slot(t, res, 1))
	assert.Equal(t, slot(t, res, 1), slot(t, res, 2))
	assert.Equal(t, mocks.FrameBytes(0, 4, 4), slot(t, res, 3))

	assert.True(t, res.Complete())
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 0, res.Stats.Seeks)
	assert.Equal(t, 6, res.Stats.FramesDecoded)
	assert.Equal(t, 3, res.Stats.FramesMatched)
	assert.Equal(t, 4, res.Stats.SlotsFilled)
	assert.Empty(t, engine.Seeks)
	assert.Equal(t, 1, engine.Closed)
}

func TestExtract_SingleFirstFrame(t *testing.T) {
	ex, _, _ := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, []int64{0})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 4, 4, 3}, res.Buffer.Dims())
	assert.Equal(t, mocks.FrameBytes(0, 4, 4), slot(t, res, 0))
	assert.Equal(t, 1, res.Stats.FramesDecoded)
}

func TestExtract_NegativeIndexMeansFirstFrame(t *testing.T) {
	ex, _, _ := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, []int64{-3, 1})
	require.NoError(t, err)

	assert.Equal(t, mocks.FrameBytes(0, 4, 4), slot(t, res, 0))
	assert.Equal(t, mocks.FrameBytes(1, 4, 4), slot(t, res, 1))
}

func TestExtract_Permutation(t *testing.T) {
	ex, _, _ := newTestExtractor(t, mocks.NewVideo(10, 2, 3), DefaultOptions())

	rng := rand.New(rand.NewSource(7))
	indices := make([]int64, 10)
	for i, v := range rng.Perm(10) {
		indices[i] = int64(v)
	}

	res, err := ex.Extract(testSource, indices)
	require.NoError(t, err)
	for i, idx := range indices {
		assert.Equal(t, mocks.FrameBytes(int(idx), 2, 3), slot(t, res, i), "slot %d", i)
	}
}

func TestExtract_IndexBeyondEnd(t *testing.T) {
	ex, _, log := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, []int64{3, 12})
	require.NoError(t, err)

	assert.False(t, res.Complete())
	assert.Equal(t, []int{1}, res.Missing)
	assert.Equal(t, mocks.FrameBytes(3, 4, 4), slot(t, res, 0))
	assert.Equal(t, make([]byte, 4*4*3), slot(t, res, 1))
	assert.Equal(t, StateDone, res.State)
	assert.True(t, log.Contains(ports.LevelWarn, "1 of 2 requested frames"))
}

func TestExtract_DrainDeliversBufferedFrames(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.Latency = 3
	ex, _, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{9, 8})
	require.NoError(t, err)

	assert.True(t, res.Complete())
	assert.Equal(t, mocks.FrameBytes(9, 4, 4), slot(t, res, 0))
	assert.Equal(t, mocks.FrameBytes(8, 4, 4), slot(t, res, 1))
}

func TestExtract_InitialSeek(t *testing.T) {
	video := mocks.NewVideo(1000, 4, 4)
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{900})
	require.NoError(t, err)

	assert.Equal(t, []int64{video.Timestamp(900)}, engine.Seeks)
	assert.Equal(t, 1, res.Stats.Seeks)
	assert.Equal(t, 1, res.Stats.FramesDecoded)
	assert.Equal(t, mocks.FrameBytes(900, 4, 4), slot(t, res, 0))
}

func TestExtract_SeekAcrossLargeGap(t *testing.T) {
	video := mocks.NewVideo(1000, 4, 4)
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{0, 700})
	require.NoError(t, err)

	assert.Equal(t, []int64{video.Timestamp(700)}, engine.Seeks)
	assert.Equal(t, 1, engine.Flushes)
	assert.Equal(t, 3, res.Stats.FramesDecoded)
	assert.Equal(t, mocks.FrameBytes(700, 4, 4), slot(t, res, 1))
}

func TestExtract_SmallGapDecodesSequentially(t *testing.T) {
	ex, engine, _ := newTestExtractor(t, mocks.NewVideo(1000, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, []int64{0, 250})
	require.NoError(t, err)

	assert.Empty(t, engine.Seeks)
	assert.Equal(t, 251, res.Stats.FramesDecoded)
}

func TestExtract_CustomThreshold(t *testing.T) {
	video := mocks.NewVideo(100, 4, 4)
	video.GOP = 10
	ex, engine, _ := newTestExtractor(t, video, Options{SeekThreshold: 10})

	res, err := ex.Extract(testSource, []int64{0, 50})
	require.NoError(t, err)

	assert.Equal(t, []int64{video.Timestamp(50)}, engine.Seeks)
	assert.Equal(t, mocks.FrameBytes(50, 4, 4), slot(t, res, 1))
}

func TestExtract_SeeksOncePerTarget(t *testing.T) {
	// Only frame 0 is a keyframe, so every seek lands back at the start.
	video := mocks.NewVideo(1000, 2, 2)
	video.GOP = 0
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{0, 700})
	require.NoError(t, err)

	assert.Len(t, engine.Seeks, 1)
	assert.Equal(t, 1+1+701, res.Stats.FramesDecoded)
	assert.Equal(t, mocks.FrameBytes(700, 2, 2), slot(t, res, 1))
}

func TestExtract_InitialSeekCountsAsAttempt(t *testing.T) {
	video := mocks.NewVideo(1000, 2, 2)
	video.GOP = 0
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{500})
	require.NoError(t, err)

	assert.Len(t, engine.Seeks, 1)
	assert.True(t, res.Complete())
}

func TestExtract_StartOffsetInSeekTimestamp(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.StartTime = 1000
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{2})
	require.NoError(t, err)

	assert.Equal(t, []int64{1000 + 2*512}, engine.Seeks)
	assert.Equal(t, mocks.FrameBytes(2, 4, 4), slot(t, res, 0))
}

func TestExtract_IgnoresOtherStreams(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.AudioEvery = 2
	ex, _, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{3, 1})
	require.NoError(t, err)

	assert.Equal(t, mocks.FrameBytes(3, 4, 4), slot(t, res, 0))
	assert.Equal(t, mocks.FrameBytes(1, 4, 4), slot(t, res, 1))
	assert.Greater(t, res.Stats.PacketsRead, res.Stats.FramesDecoded)
}

func TestExtract_TimestampPastTarget(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.PTS = map[int]int64{3: video.Timestamp(6)}
	ex, engine, _ := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{4})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrStreamConsistency)

	var consistency *StreamConsistencyError
	require.True(t, errors.As(err, &consistency))
	assert.Equal(t, int64(6), consistency.Decoded)
	assert.Equal(t, int64(4), consistency.Target)
	assert.Equal(t, 1, engine.Closed)
}

func TestExtract_GeometryMismatchLeavesSlotEmpty(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.Size = map[int][2]int{2: {8, 8}}
	ex, _, log := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{2, 4})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, res.Missing)
	assert.Equal(t, 1, res.Stats.SkippedFrames)
	assert.Equal(t, mocks.FrameBytes(4, 4, 4), slot(t, res, 1))
	assert.True(t, log.Contains(ports.LevelWarn, "resolution mismatch"))
}

func TestExtract_DecodeErrorEndsWithPartialResult(t *testing.T) {
	video := mocks.NewVideo(10, 4, 4)
	video.FailAfter = 2
	ex, _, log := newTestExtractor(t, video, DefaultOptions())

	res, err := ex.Extract(testSource, []int64{0, 5})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, res.Missing)
	assert.Equal(t, mocks.FrameBytes(0, 4, 4), slot(t, res, 0))
	assert.True(t, log.Contains(ports.LevelWarn, "Decoding failed"))
}

func TestExtract_SetupErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(e *mocks.Engine, v *mocks.Video)
		source string
		want   error
	}{
		{
			name:   "missing source",
			source: "missing.mp4",
			want:   ErrSourceOpen,
		},
		{
			name:  "open failure",
			setup: func(e *mocks.Engine, v *mocks.Video) { e.OpenErr = errors.New("bad header") },
			want:  ErrSourceOpen,
		},
		{
			name:  "no video stream",
			setup: func(e *mocks.Engine, v *mocks.Video) { e.StreamErr = ports.ErrNoVideoStream },
			want:  ErrStreamNotFound,
		},
		{
			name:  "codec not found",
			setup: func(e *mocks.Engine, v *mocks.Video) { e.CodecErr = ports.ErrCodecNotFound },
			want:  ErrCodecUnavailable,
		},
		{
			name:  "codec open failure",
			setup: func(e *mocks.Engine, v *mocks.Video) { e.CodecErr = errors.New("no ffmpeg") },
			want:  ErrCodecContext,
		},
		{
			name:  "converter failure",
			setup: func(e *mocks.Engine, v *mocks.Video) { e.ConverterErr = ports.ErrUnsupportedPixelFormat },
			want:  ErrConverterInit,
		},
		{
			name:  "zero width",
			setup: func(e *mocks.Engine, v *mocks.Video) { v.Width = 0 },
			want:  ErrInvalidGeometry,
		},
		{
			name:  "zero frame rate",
			setup: func(e *mocks.Engine, v *mocks.Video) { v.FrameRate = timeline.Rational{Num: 0, Den: 1} },
			want:  ErrInvalidTimeline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := mocks.NewVideo(10, 4, 4)
			engine := mocks.NewEngine().Add(testSource, video)
			if tt.setup != nil {
				tt.setup(engine, video)
			}
			source := tt.source
			if source == "" {
				source = testSource
			}

			res, err := New(engine, mocks.NewLogger(), DefaultOptions()).Extract(source, []int64{1})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, engine.Sent)
		})
	}
}

func TestExtract_EmptyRequest(t *testing.T) {
	ex, engine, _ := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	res, err := ex.Extract(testSource, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.Empty(t, engine.Opened)
}

func TestExtract_IndependentCalls(t *testing.T) {
	ex, _, _ := newTestExtractor(t, mocks.NewVideo(10, 4, 4), DefaultOptions())

	first, err := ex.Extract(testSource, []int64{1})
	require.NoError(t, err)
	second, err := ex.Extract(testSource, []int64{1})
	require.NoError(t, err)

	assert.Equal(t, slot(t, first, 0), slot(t, second, 0))
	assert.NotSame(t, &first.Buffer.Bytes()[0], &second.Buffer.Bytes()[0])
}
