package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"png", FormatPNG},
		{"PNG", FormatPNG},
		{"jpeg", FormatJPEG},
		{"jpg", FormatJPEG},
		{" raw ", FormatRaw},
		{"rgb", FormatRaw},
		{"sheet", FormatSheet},
		{"contact-sheet", FormatSheet},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOutputFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDimension_ScaleTo(t *testing.T) {
	d := Dimension{Width: 1920, Height: 1080}

	assert.Equal(t, Dimension{Width: 640, Height: 360}, d.ScaleTo(640))
	assert.Equal(t, d, d.ScaleTo(0))
	assert.Equal(t, d, d.ScaleTo(1920))
	assert.Equal(t, d, d.ScaleTo(4000))
	assert.Equal(t, Dimension{Width: 1, Height: 1}, Dimension{Width: 100, Height: 2}.ScaleTo(1))
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"clip.mp4", "clip"},
		{"/videos/2024/holiday trip.mov", "holiday_trip"},
		{"file:///data/in/cam-01.mp4", "cam-01"},
		{"https://example.com/media/a.b.mp4?token=1", "a.b"},
		{`C:\videos\clip.mp4`, "clip"},
		{"", "source"},
		{"/", "source"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceName(tt.source))
		})
	}
}

func TestDefaultExportInput(t *testing.T) {
	in := DefaultExportInput()

	assert.Equal(t, FormatPNG, in.Format)
	assert.Equal(t, 90, in.Quality)
	assert.Equal(t, 4, in.SheetColumns)
	assert.NotNil(t, in.Theme.BackgroundColor)
}
