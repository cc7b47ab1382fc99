package mp4engine

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/deepframe/pkg/adapters/logger"
	"github.com/user/deepframe/pkg/mocks"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/timeline"
)

func writeMP4(t *testing.T, layout mocks.MP4Spec) string {
	t.Helper()
	data, err := mocks.FragmentedMP4(layout)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeProgressive(t *testing.T, layout mocks.MP4Spec, chunkSize int, co64 bool) string {
	t.Helper()
	data, err := mocks.ProgressiveMP4(layout, chunkSize, co64)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "progressive.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func openContainer(t *testing.T, path string) ports.Container {
	t.Helper()
	c, err := New(Options{}, logger.NewNoop()).Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_StreamInfo(t *testing.T) {
	c := openContainer(t, writeMP4(t, mocks.SimpleMP4Spec(10, 5)))

	info, err := c.BestVideoStream()
	require.NoError(t, err)

	assert.Equal(t, "h264", info.Codec)
	assert.Equal(t, 16, info.Width)
	assert.Equal(t, 16, info.Height)
	assert.Equal(t, timeline.Rational{Num: 1, Den: 12800}, info.TimeBase)
	assert.Equal(t, timeline.Rational{Num: 25, Den: 1}, info.FrameRate)
	assert.Equal(t, int64(0), info.StartTime)
	assert.Equal(t, int64(10), info.FrameCount)
	assert.Equal(t, int64(10*512), info.Duration)
}

func TestOpen_StartOffset(t *testing.T) {
	layout := mocks.SimpleMP4Spec(4, 2)
	layout.StartTime = 1024
	c := openContainer(t, writeMP4(t, layout))

	info, err := c.BestVideoStream()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.StartTime)
	assert.Equal(t, int64(2), info.Timeline().FrameNumber(1024+2*512))
}

func TestReadPacket_AnnexB(t *testing.T) {
	c := openContainer(t, writeMP4(t, mocks.SimpleMP4Spec(3, 2)))

	var pkt ports.Packet
	require.NoError(t, c.ReadPacket(&pkt))
	assert.True(t, pkt.Keyframe)
	assert.Equal(t, int64(0), pkt.PTS)

	var want []byte
	want = append(want, 0, 0, 0, 1)
	want = append(want, mocks.TestSPS...)
	want = append(want, 0, 0, 0, 1)
	want = append(want, mocks.TestPPS...)
	want = append(want, 0, 0, 0, 1, 0x65, 0, 0)
	assert.Equal(t, want, pkt.Data)

	require.NoError(t, c.ReadPacket(&pkt))
	assert.False(t, pkt.Keyframe)
	assert.Equal(t, int64(512), pkt.PTS)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x41, 0, 1}, pkt.Data)

	require.NoError(t, c.ReadPacket(&pkt))
	assert.True(t, pkt.Keyframe)
	assert.True(t, bytes.HasSuffix(pkt.Data, []byte{0, 0, 0, 1, 0x65, 0, 2}))

	assert.ErrorIs(t, c.ReadPacket(&pkt), io.EOF)
}

func TestSeek_LandsOnKeyframe(t *testing.T) {
	c := openContainer(t, writeMP4(t, mocks.SimpleMP4Spec(20, 5)))

	tests := []struct {
		ts        int64
		wantFrame int64
	}{
		{ts: 7 * 512, wantFrame: 5},
		{ts: 10 * 512, wantFrame: 10},
		{ts: 10*512 - 1, wantFrame: 5},
		{ts: -100, wantFrame: 0},
		{ts: 1 << 40, wantFrame: 15},
	}
	for _, tt := range tests {
		require.NoError(t, c.Seek(0, tt.ts))
		var pkt ports.Packet
		require.NoError(t, c.ReadPacket(&pkt))
		assert.True(t, pkt.Keyframe)
		assert.Equal(t, tt.wantFrame*512, pkt.PTS, "seek to %d", tt.ts)
	}

	assert.Error(t, c.Seek(3, 0))
}

func TestOpen_Sources(t *testing.T) {
	engine := New(Options{}, logger.NewNoop())

	_, err := engine.Open(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = engine.Open("https://example.com/clip.mp4")
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	path := writeMP4(t, mocks.SimpleMP4Spec(2, 1))
	c, err := engine.Open("file://" + path)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestOpenCodec_Unsupported(t *testing.T) {
	c := openContainer(t, writeMP4(t, mocks.SimpleMP4Spec(2, 1)))

	info, err := c.BestVideoStream()
	require.NoError(t, err)
	info.Codec = "av1"

	_, err = c.OpenCodec(info, ports.CodecOptions{})
	assert.ErrorIs(t, err, ports.ErrCodecNotFound)
}

func TestTrack_StreamInfoWithReordering(t *testing.T) {
	// I P B B in decode order, presented as I B B P.
	tr := &track{
		codec:     "h264",
		width:     8,
		height:    8,
		timescale: 90000,
		samples: []sample{
			{dts: -3600, pts: 0, dur: 3600, key: true},
			{dts: 0, pts: 10800, dur: 3600},
			{dts: 3600, pts: 3600, dur: 3600},
			{dts: 7200, pts: 7200, dur: 3600},
		},
	}

	info := tr.streamInfo()
	assert.Equal(t, int64(0), info.StartTime)
	assert.Equal(t, timeline.Rational{Num: 25, Den: 1}, info.FrameRate)
	assert.Equal(t, int64(4), info.FrameCount)
	assert.Equal(t, 0, tr.seekIndex(7200))
}

func TestTrack_StreamInfoEmpty(t *testing.T) {
	tr := &track{codec: "h264", timescale: 1000}
	info := tr.streamInfo()
	assert.Equal(t, timeline.NoPTS, info.StartTime)
	assert.False(t, info.FrameRate.Valid())
}

func TestAvccToAnnexB(t *testing.T) {
	data := []byte{
		0, 0, 0, 2, 0x65, 0xaa,
		0, 0, 0, 1, 0x06,
		0, 0, 0, 9, 0x01, // truncated
	}
	got := avccToAnnexB([]byte{0xff}, data)
	assert.Equal(t, []byte{0xff, 0, 0, 0, 1, 0x65, 0xaa, 0, 0, 0, 1, 0x06}, got)
}

func TestLocalPath(t *testing.T) {
	p, err := localPath("/tmp/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.mp4", p)

	p, err = localPath("file:///tmp/b.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.mp4", p)
}

func TestOpen_Progressive(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		co64      bool
	}{
		{"stco chunks of 3", 3, false},
		{"stco single chunk", 16, false},
		{"stco chunk per sample", 1, false},
		{"co64 chunks of 3", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := openContainer(t, writeProgressive(t, mocks.SimpleMP4Spec(8, 4), tt.chunkSize, tt.co64))

			info, err := c.BestVideoStream()
			require.NoError(t, err)
			assert.Equal(t, "h264", info.Codec)
			assert.Equal(t, 16, info.Width)
			assert.Equal(t, int64(8), info.FrameCount)
			assert.Equal(t, timeline.Rational{Num: 25, Den: 1}, info.FrameRate)
			assert.Equal(t, int64(0), info.StartTime)

			for i := 0; i < 8; i++ {
				var pkt ports.Packet
				require.NoError(t, c.ReadPacket(&pkt), "sample %d", i)

				key := i%4 == 0
				nalType := byte(0x41)
				if key {
					nalType = 0x65
				}
				assert.Equal(t, key, pkt.Keyframe, "sample %d", i)
				assert.Equal(t, int64(i*512), pkt.PTS, "sample %d", i)
				assert.True(t, bytes.HasSuffix(pkt.Data, []byte{0, 0, 0, 1, nalType, 0, byte(i)}), "sample %d", i)
			}

			var pkt ports.Packet
			assert.ErrorIs(t, c.ReadPacket(&pkt), io.EOF)
		})
	}
}

func TestSeek_Progressive(t *testing.T) {
	c := openContainer(t, writeProgressive(t, mocks.SimpleMP4Spec(12, 4), 5, false))

	require.NoError(t, c.Seek(0, 9*512))
	var pkt ports.Packet
	require.NoError(t, c.ReadPacket(&pkt))
	assert.True(t, pkt.Keyframe)
	assert.Equal(t, int64(8*512), pkt.PTS)
	assert.True(t, bytes.HasSuffix(pkt.Data, []byte{0, 0, 0, 1, 0x65, 0, 8}))

	require.NoError(t, c.ReadPacket(&pkt))
	assert.Equal(t, []byte{0, 0, 0, 1, 0x41, 0, 9}, pkt.Data)
}

func TestSampleOffset_ChunkTables(t *testing.T) {
	data, err := mocks.ProgressiveMP4(mocks.SimpleMP4Spec(7, 7), 3, false)
	require.NoError(t, err)
	c := openContainer(t, writeProgressive(t, mocks.SimpleMP4Spec(7, 7), 3, false))
	tr := c.(*container).track
	require.Len(t, tr.samples, 7)

	// Each stored sample is a 4-byte length and a 3-byte NAL unit.
	for i := 1; i < 7; i++ {
		assert.Equal(t, tr.samples[i-1].offset+7, tr.samples[i].offset, "sample %d", i)
		assert.Equal(t, uint32(7), tr.samples[i].size)
	}
	last := tr.samples[6]
	assert.Equal(t, int64(len(data)), last.offset+int64(last.size))
}
