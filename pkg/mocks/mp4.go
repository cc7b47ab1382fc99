package mocks

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Parameter sets of a 16x16 baseline H.264 stream.
var (
	TestSPS = []byte{0x67, 0x42, 0xc0, 0x0a, 0xda, 0x79}
	TestPPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

// MP4Sample is one video sample of a synthetic MP4.
type MP4Sample struct {
	Key     bool
	Dur     uint32
	Payload []byte // one NAL unit, stored length-prefixed
}

// MP4Spec describes a synthetic single-track MP4.
type MP4Spec struct {
	Width     int
	Height    int
	Timescale uint32
	StartTime uint64 // base media decode time of the first sample
	Samples   []MP4Sample
}

// SimpleMP4Spec returns frames samples of 512 ticks at timescale 12800
// (25 fps) with a keyframe every gop frames. Each payload names its frame.
func SimpleMP4Spec(frames, gop int) MP4Spec {
	spec := MP4Spec{Width: 16, Height: 16, Timescale: 12800}
	for i := 0; i < frames; i++ {
		key := gop > 0 && i%gop == 0 || i == 0
		nalType := byte(0x41)
		if key {
			nalType = 0x65
		}
		spec.Samples = append(spec.Samples, MP4Sample{
			Key:     key,
			Dur:     512,
			Payload: []byte{nalType, byte(i >> 8), byte(i)},
		})
	}
	return spec
}

// FragmentedMP4 encodes spec as ftyp, moov and a single moof/mdat pair.
func FragmentedMP4(spec MP4Spec) ([]byte, error) {
	const trackID = 1

	init, err := newInit(spec)
	if err != nil {
		return nil, err
	}

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	decodeTime := spec.StartTime
	for _, s := range spec.Samples {
		data := lengthPrefixed(s.Payload)

		flags := mp4.NonSyncSampleFlags
		if s.Key {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(data)),
				Dur:   s.Dur,
			},
			DecodeTime: decodeTime,
			Data:       data,
		})
		decodeTime += uint64(s.Dur)
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

// ProgressiveMP4 encodes spec as ftyp, moov and mdat with sample tables.
// Samples are stored chunkSize per chunk, the last chunk holding the rest,
// and co64 selects 64-bit chunk offsets. StartTime is not represented.
func ProgressiveMP4(spec MP4Spec, chunkSize int, co64 bool) ([]byte, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	init, err := newInit(spec)
	if err != nil {
		return nil, err
	}
	moov := init.Moov
	dropMvex(moov)
	stbl := moov.Trak.Mdia.Minf.Stbl

	var payload []byte
	var chunkStarts []uint64
	stss := &mp4.StssBox{}
	for i, s := range spec.Samples {
		if i%chunkSize == 0 {
			chunkStarts = append(chunkStarts, uint64(len(payload)))
		}
		data := lengthPrefixed(s.Payload)
		payload = append(payload, data...)

		stbl.Stts.SampleCount = append(stbl.Stts.SampleCount, 1)
		stbl.Stts.SampleTimeDelta = append(stbl.Stts.SampleTimeDelta, s.Dur)
		stbl.Stsz.SampleSize = append(stbl.Stsz.SampleSize, uint32(len(data)))
		if s.Key {
			stss.SampleNumber = append(stss.SampleNumber, uint32(i+1))
		}
	}
	stbl.Stsz.SampleNumber = uint32(len(spec.Samples))
	stbl.AddChild(stss)

	full := len(spec.Samples) / chunkSize
	if full > 0 {
		if err := stbl.Stsc.AddEntry(1, uint32(chunkSize), 1); err != nil {
			return nil, fmt.Errorf("add stsc entry: %w", err)
		}
	}
	if rest := len(spec.Samples) % chunkSize; rest > 0 {
		if err := stbl.Stsc.AddEntry(uint32(full+1), uint32(rest), 1); err != nil {
			return nil, fmt.Errorf("add stsc entry: %w", err)
		}
	}

	// Offset tables have a fixed size, so moov can be sized before the
	// offsets are known.
	var long *mp4.Co64Box
	if co64 {
		long = &mp4.Co64Box{ChunkOffset: make([]uint64, len(chunkStarts))}
		replaceChild(stbl, stbl.Stco, long)
		stbl.Stco = nil
		stbl.Co64 = long
	} else {
		stbl.Stco.ChunkOffset = make([]uint32, len(chunkStarts))
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	base := ftyp.Size() + moov.Size() + 8
	for i, start := range chunkStarts {
		if co64 {
			long.ChunkOffset[i] = base + start
		} else {
			stbl.Stco.ChunkOffset[i] = uint32(base + start)
		}
	}

	var buf bytes.Buffer
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	mdat := &mp4.MdatBox{Data: payload}
	if err := mdat.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode mdat: %w", err)
	}
	return buf.Bytes(), nil
}

// newInit creates the moov of a single avc1 track described by spec.
func newInit(spec MP4Spec) (*mp4.InitSegment, error) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(spec.Timescale, "video", "en")
	trak := init.Moov.Trak

	avcC, err := mp4.CreateAvcC([][]byte{TestSPS}, [][]byte{TestPPS}, true)
	if err != nil {
		return nil, fmt.Errorf("create avcC: %w", err)
	}
	avc1 := mp4.CreateVisualSampleEntryBox("avc1", uint16(spec.Width), uint16(spec.Height), avcC)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(avc1)
	trak.Tkhd.Width = mp4.Fixed32(spec.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(spec.Height << 16)
	return init, nil
}

// dropMvex removes the movie extends box so the file reads as progressive.
func dropMvex(moov *mp4.MoovBox) {
	if moov.Mvex == nil {
		return
	}
	children := moov.Children[:0]
	for _, child := range moov.Children {
		if child != mp4.Box(moov.Mvex) {
			children = append(children, child)
		}
	}
	moov.Children = children
	moov.Mvex = nil
}

func replaceChild(stbl *mp4.StblBox, old *mp4.StcoBox, box mp4.Box) {
	for i, child := range stbl.Children {
		if child == mp4.Box(old) {
			stbl.Children[i] = box
		}
	}
}

// lengthPrefixed stores one NAL unit with a 4-byte length.
func lengthPrefixed(nalu []byte) []byte {
	n := len(nalu)
	data := make([]byte, 4+n)
	data[0], data[1], data[2], data[3] = byte(n>>24), byte(n>>16), byte(n>>8), byte(n)
	copy(data[4:], nalu)
	return data
}
