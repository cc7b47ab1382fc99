package mp4engine

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/deepframe/pkg/adapters/codecdetect"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/timeline"
)

// nonSyncSampleFlag is the sample_is_non_sync_sample bit of fragment sample flags.
const nonSyncSampleFlag = 0x00010000

// sample is one access unit in decode order.
type sample struct {
	offset int64  // file offset, progressive files only
	size   uint32 // stored size
	data   []byte // fragmented files keep payloads in memory
	dts    int64
	pts    int64
	dur    uint32
	key    bool
}

// track is the sample index of the selected video track.
type track struct {
	index     int // position among the file's tracks
	id        uint32
	codec     codecdetect.Codec
	width     int
	height    int
	timescale uint32
	paramSets []byte // Annex B
	samples   []sample
}

// indexFile builds the sample index of the first video track.
func indexFile(f *mp4.File) (*track, error) {
	traks := codecdetect.Tracks(f)
	for i, trak := range traks {
		if !codecdetect.IsVideo(trak) {
			continue
		}
		t, err := newTrack(i, trak)
		if err != nil {
			return nil, err
		}
		if f.IsFragmented() {
			err = t.indexFragments(f)
		} else {
			err = t.indexProgressive(trak.Mdia.Minf.Stbl)
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, ports.ErrNoVideoStream
}

func newTrack(index int, trak *mp4.TrakBox) (*track, error) {
	t := &track{
		index:     index,
		id:        trak.Tkhd.TrackID,
		codec:     codecdetect.FromTrack(trak),
		timescale: 1000,
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		t.timescale = trak.Mdia.Mdhd.Timescale
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		entry, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		t.width = int(entry.Width)
		t.height = int(entry.Height)
		t.paramSets = parameterSets(entry)
		break
	}
	if t.width == 0 || t.height == 0 {
		t.width = int(trak.Tkhd.Width >> 16)
		t.height = int(trak.Tkhd.Height >> 16)
	}
	return t, nil
}

// parameterSets returns the out-of-band SPS/PPS (and VPS) in Annex B form.
func parameterSets(entry *mp4.VisualSampleEntryBox) []byte {
	var out []byte
	if entry.AvcC != nil {
		for _, sps := range entry.AvcC.SPSnalus {
			out = appendNALU(out, sps)
		}
		for _, pps := range entry.AvcC.PPSnalus {
			out = appendNALU(out, pps)
		}
	}
	if entry.HvcC != nil {
		for _, arr := range entry.HvcC.NaluArrays {
			for _, nalu := range arr.Nalus {
				out = appendNALU(out, nalu)
			}
		}
	}
	return out
}

func (t *track) indexProgressive(stbl *mp4.StblBox) error {
	if stbl.Stsz == nil {
		return fmt.Errorf("mp4engine: no stsz box found")
	}
	count := stbl.Stsz.SampleNumber

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	t.samples = make([]sample, 0, count)
	for nr := uint32(1); nr <= count; nr++ {
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return fmt.Errorf("mp4engine: sample %d: %w", nr, err)
		}

		var dts uint64
		var dur uint32
		if stbl.Stts != nil {
			dts, dur = stbl.Stts.GetDecodeTime(nr)
		}
		pts := int64(dts)
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}

		t.samples = append(t.samples, sample{
			offset: int64(offset),
			size:   stbl.Stsz.GetSampleSize(int(nr)),
			dts:    int64(dts),
			pts:    pts,
			dur:    dur,
			key:    syncSamples[nr] || len(syncSamples) == 0,
		})
	}
	return nil
}

// sampleOffset returns the file offset of a sample from the chunk tables.
func sampleOffset(stbl *mp4.StblBox, nr uint32) (uint64, error) {
	if stbl.Stsc == nil {
		return 0, fmt.Errorf("missing stsc box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, nil
}

func (t *track) indexFragments(f *mp4.File) error {
	var trex *mp4.TrexBox
	if f.Init != nil && f.Init.Moov != nil && f.Init.Moov.Mvex != nil {
		for _, tr := range f.Init.Moov.Mvex.Trexs {
			if tr.TrackID == t.id {
				trex = tr
				break
			}
		}
	}

	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != t.id {
					continue
				}

				var decodeTime uint64
				if traf.Tfdt != nil {
					decodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("mp4engine: get samples: %w", err)
				}
				for _, s := range samples {
					t.samples = append(t.samples, sample{
						size: uint32(len(s.Data)),
						data: s.Data,
						dts:  int64(decodeTime),
						pts:  int64(decodeTime) + int64(s.CompositionTimeOffset),
						dur:  s.Dur,
						key:  s.Flags&nonSyncSampleFlag == 0,
					})
					decodeTime += uint64(s.Dur)
				}
			}
		}
	}
	return nil
}

// streamInfo derives the stream description from the sample index.
func (t *track) streamInfo() ports.StreamInfo {
	info := ports.StreamInfo{
		Index:      t.index,
		Codec:      string(t.codec),
		Width:      t.width,
		Height:     t.height,
		TimeBase:   timeline.Rational{Num: 1, Den: int64(t.timescale)},
		StartTime:  timeline.NoPTS,
		FrameCount: int64(len(t.samples)),
	}
	if len(t.samples) == 0 {
		return info
	}

	start := t.samples[0].pts
	var total int64
	for _, s := range t.samples {
		if s.pts < start {
			start = s.pts
		}
		total += int64(s.dur)
	}
	info.StartTime = start
	info.Duration = total
	if total > 0 {
		info.FrameRate = timeline.Rational{
			Num: int64(len(t.samples)) * int64(t.timescale),
			Den: total,
		}.Reduce()
	}
	return info
}

// seekIndex returns the position of the last keyframe presented at or
// before ts, or 0 when there is none.
func (t *track) seekIndex(ts int64) int {
	idx := 0
	for i, s := range t.samples {
		if s.key && s.pts <= ts {
			idx = i
		}
	}
	return idx
}

// read returns the stored bytes of sample i, reusing buf.
func (t *track) read(r io.ReaderAt, i int, buf []byte) ([]byte, error) {
	s := t.samples[i]
	if s.data != nil {
		return s.data, nil
	}
	if cap(buf) < int(s.size) {
		buf = make([]byte, s.size)
	}
	buf = buf[:s.size]
	if _, err := r.ReadAt(buf, s.offset); err != nil {
		return nil, fmt.Errorf("mp4engine: read sample %d: %w", i+1, err)
	}
	return buf, nil
}
