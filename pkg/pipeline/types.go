package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"path"
	"strings"

	"github.com/user/deepframe/pkg/extract"
)

// ErrUnknownFormat is returned by ParseOutputFormat.
var ErrUnknownFormat = errors.New("pipeline: unknown output format")

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// ScaleTo returns the dimension resized to width, keeping the aspect ratio.
// A zero or larger width returns d unchanged.
func (d Dimension) ScaleTo(width int) Dimension {
	if width <= 0 || width >= d.Width || d.Width == 0 {
		return d
	}
	height := (d.Height*width + d.Width/2) / d.Width
	if height < 1 {
		height = 1
	}
	return Dimension{Width: width, Height: height}
}

// SourceName derives a file-system safe name from a source path or URL:
// the base name without extension, with unsafe characters replaced by '_'.
func SourceName(source string) string {
	name := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "source"
	}

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	if safe == ".." {
		return "source"
	}
	return safe
}

// =============================================================================
// Decode Stage Types
// =============================================================================

// DecodeInput names a source and the frames to take from it.
type DecodeInput struct {
	Source  string
	Indices []int64
}

// DecodeResult contains the extracted frames of one source.
type DecodeResult struct {
	Source  string
	Indices []int64
	Result  *extract.Result
}

// =============================================================================
// Export Stage Types
// =============================================================================

// OutputFormat selects how extracted frames are written.
type OutputFormat string

const (
	FormatPNG   OutputFormat = "png"   // one PNG per slot
	FormatJPEG  OutputFormat = "jpeg"  // one JPEG per slot
	FormatRaw   OutputFormat = "raw"   // packed RGB24 buffer plus YAML sidecar
	FormatSheet OutputFormat = "sheet" // single contact sheet PNG
)

// OutputFormats lists every supported format.
var OutputFormats = []OutputFormat{FormatPNG, FormatJPEG, FormatRaw, FormatSheet}

// ParseOutputFormat parses a format name. "jpg" is accepted for jpeg.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "raw", "rgb":
		return FormatRaw, nil
	case "sheet", "contact-sheet":
		return FormatSheet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ExportInput contains parameters for writing a decode result.
type ExportInput struct {
	Decoded      DecodeResult
	OutputDir    string
	Prefix       string       // file name prefix (default: source base name)
	Format       OutputFormat // default: png
	Quality      int          // JPEG quality 1-100 (default: 90)
	ScaleWidth   int          // 0 keeps the source width
	SheetColumns int          // contact sheet columns (default: 4)
	Theme        SheetTheme
}

// DefaultExportInput returns ExportInput with default values.
func DefaultExportInput() ExportInput {
	return ExportInput{
		Format:       FormatPNG,
		Quality:      90,
		SheetColumns: 4,
		Theme:        DefaultSheetTheme(),
	}
}

// SheetTheme defines contact sheet styling.
type SheetTheme struct {
	BackgroundColor color.Color
	LabelColor      color.Color
	MissingColor    color.Color
	Gap             int
	LabelHeight     int
	FontSize        float64
}

// DefaultSheetTheme returns a default contact sheet theme.
func DefaultSheetTheme() SheetTheme {
	return SheetTheme{
		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		LabelColor:      color.RGBA{R: 220, G: 220, B: 220, A: 255},
		MissingColor:    color.RGBA{R: 90, G: 40, B: 40, A: 255},
		Gap:             8,
		LabelHeight:     18,
		FontSize:        12,
	}
}

// ExportResult lists the files written for one source.
type ExportResult struct {
	Files []string
	Bytes int64
}
