// Package codecdetect identifies the video codec of MP4 files from the
// sample entry of their first video track.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec names a video codec using ffmpeg's vocabulary.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecUnknown Codec = "unknown"
)

// sampleEntries maps ISO BMFF sample entry types to codecs.
var sampleEntries = map[string]Codec{
	"avc1": CodecH264,
	"avc3": CodecH264,
	"hvc1": CodecHEVC,
	"hev1": CodecHEVC,
	"av01": CodecAV1,
	"vp09": CodecVP9,
}

// DetectFromFile detects the video codec used in an MP4 file.
func DetectFromFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the video codec from an io.ReadSeeker and
// rewinds it afterwards.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	return DetectFromMP4(mp4File)
}

// DetectFromBytes detects the video codec from MP4 data bytes.
func DetectFromBytes(data []byte) (Codec, error) {
	return DetectFromReader(bytes.NewReader(data))
}

// DetectFromMP4 returns the codec of the first video track of a decoded file.
func DetectFromMP4(mp4File *mp4.File) (Codec, error) {
	for _, trak := range Tracks(mp4File) {
		if codec := FromTrack(trak); codec != CodecUnknown {
			return codec, nil
		}
	}
	return CodecUnknown, fmt.Errorf("no video track found")
}

// Tracks returns the tracks of a progressive or fragmented file.
func Tracks(mp4File *mp4.File) []*mp4.TrakBox {
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		return mp4File.Init.Moov.Traks
	}
	if mp4File.Moov != nil {
		return mp4File.Moov.Traks
	}
	return nil
}

// IsVideo reports whether trak is a video track with a sample description.
func IsVideo(trak *mp4.TrakBox) bool {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return false
	}
	return trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil
}

// FromTrack returns the codec of a video track, CodecUnknown otherwise.
func FromTrack(trak *mp4.TrakBox) Codec {
	if !IsVideo(trak) {
		return CodecUnknown
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if codec, ok := sampleEntries[child.Type()]; ok {
			return codec
		}
	}
	return CodecUnknown
}
