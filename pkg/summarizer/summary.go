// Package summarizer provides summary generation for extraction runs.
package summarizer

import "time"

// Source statuses.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// Summary contains all data collected during one run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Run settings
	Settings Settings

	// One entry per source, in command line order
	Sources []SourceInfo
}

// Settings contains the run configuration.
type Settings struct {
	Format        string
	PixelFormat   string // empty means the decoder's native format
	SeekThreshold int64
	ScaleWidth    int
	Jobs          int
	Selection     string // index expression as given by the user
}

// SourceInfo describes the outcome for one source.
type SourceInfo struct {
	Source string
	Status string
	Error  string

	// Stream
	Codec     string
	Width     int
	Height    int
	FrameRate string

	// Request
	Requested int
	Distinct  int
	Missing   []int

	// Work
	PacketsRead   int
	FramesDecoded int
	Seeks         int
	DurationMs    int64

	// Output
	Files []string
	Bytes int64
}

// Totals aggregates all sources.
type Totals struct {
	Sources       int
	Failed        int
	Partial       int
	Requested     int
	Missing       int
	FramesDecoded int
	Seeks         int
	Files         int
	Bytes         int64
	DurationMs    int64
}

// Totals sums the per-source figures.
func (s *Summary) Totals() Totals {
	var t Totals
	for _, src := range s.Sources {
		t.Sources++
		switch src.Status {
		case StatusFailed:
			t.Failed++
		case StatusPartial:
			t.Partial++
		}
		t.Requested += src.Requested
		t.Missing += len(src.Missing)
		t.FramesDecoded += src.FramesDecoded
		t.Seeks += src.Seeks
		t.Files += len(src.Files)
		t.Bytes += src.Bytes
		t.DurationMs += src.DurationMs
	}
	return t
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSettings sets run settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// AddSource appends the outcome of one source.
func (b *Builder) AddSource(info SourceInfo) *Builder {
	if info.Status == "" {
		info.Status = StatusComplete
		if len(info.Missing) > 0 {
			info.Status = StatusPartial
		}
	}
	b.summary.Sources = append(b.summary.Sources, info)
	return b
}

// AddFailure appends a source that produced no result.
func (b *Builder) AddFailure(source string, err error) *Builder {
	info := SourceInfo{Source: source, Status: StatusFailed}
	if err != nil {
		info.Error = err.Error()
	}
	b.summary.Sources = append(b.summary.Sources, info)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
