// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/deepframe/pkg/adapters/pixconv"
	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/indices"
	"github.com/user/deepframe/pkg/orchestrator"
	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("config: invalid value")

// Config represents the full configuration for deepframe.
type Config struct {
	// Selection
	Indices string `yaml:"indices"`

	// Extraction
	SeekThreshold int64  `yaml:"seek_threshold"`
	PixelFormat   string `yaml:"pixel_format"`
	FFmpegPath    string `yaml:"ffmpeg_path"`

	// Output
	OutputDir    string      `yaml:"output"`
	Prefix       string      `yaml:"prefix"`
	Format       string      `yaml:"format"`
	Quality      int         `yaml:"quality"`
	ScaleWidth   int         `yaml:"scale_width"`
	SheetColumns int         `yaml:"sheet_columns"`
	Sheet        ThemeConfig `yaml:"sheet"`

	// Execution
	Jobs     int    `yaml:"jobs"`
	LogLevel string `yaml:"log_level"`

	// Reports
	Summary     string `yaml:"summary"`
	MetricsFile string `yaml:"metrics_file"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// ThemeConfig represents contact sheet colours.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	LabelColor      string `yaml:"label_color"`
	MissingColor    string `yaml:"missing_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Extraction
		SeekThreshold: extract.DefaultOptions().SeekThreshold,

		// Output
		OutputDir:    ".",
		Format:       string(pipeline.FormatPNG),
		Quality:      90,
		SheetColumns: 4,
		Sheet: ThemeConfig{
			BackgroundColor: "#1e1e1e",
			LabelColor:      "#dcdcdc",
			MissingColor:    "#5a2828",
		},

		// Execution
		Jobs:     1,
		LogLevel: "info",

		// Debug
		DebugDir: "./debug",
	}
}

// Parse reads YAML on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(data)
}

// Validate checks every field and reports the first invalid one.
func (c Config) Validate() error {
	if c.SeekThreshold < 0 {
		return fmt.Errorf("%w: seek_threshold %d is negative", ErrInvalid, c.SeekThreshold)
	}
	if c.PixelFormat != "" && !pixconv.Supported(ports.PixelFormat(c.PixelFormat)) {
		return fmt.Errorf("%w: unsupported pixel_format %q", ErrInvalid, c.PixelFormat)
	}
	if _, err := pipeline.ParseOutputFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality %d is outside 1-100", ErrInvalid, c.Quality)
	}
	if c.ScaleWidth < 0 {
		return fmt.Errorf("%w: scale_width %d is negative", ErrInvalid, c.ScaleWidth)
	}
	if c.SheetColumns < 1 {
		return fmt.Errorf("%w: sheet_columns must be at least 1", ErrInvalid)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be at least 1", ErrInvalid)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "quiet":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.Indices != "" {
		if _, err := indices.Parse(c.Indices); err != nil {
			return fmt.Errorf("%w: indices: %w", ErrInvalid, err)
		}
	}
	for key, hex := range map[string]string{
		"sheet.background_color": c.Sheet.BackgroundColor,
		"sheet.label_color":      c.Sheet.LabelColor,
		"sheet.missing_color":    c.Sheet.MissingColor,
	} {
		if hex != "" && !validHex(hex) {
			return fmt.Errorf("%w: %s %q is not a #rrggbb colour", ErrInvalid, key, hex)
		}
	}
	return nil
}

// ExtractOptions returns the extraction options.
func (c Config) ExtractOptions() extract.Options {
	return extract.Options{
		SeekThreshold:     c.SeekThreshold,
		ForcedPixelFormat: ports.PixelFormat(c.PixelFormat),
	}
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}

	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func validHex(hex string) bool {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return false
	}
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config for sources.
func (c Config) ToOrchestratorConfig(sources []string) (orchestrator.Config, error) {
	sel, err := indices.Parse(c.Indices)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("indices: %w", err)
	}
	format, err := pipeline.ParseOutputFormat(c.Format)
	if err != nil {
		return orchestrator.Config{}, err
	}

	theme := pipeline.DefaultSheetTheme()
	if c.Sheet.BackgroundColor != "" {
		theme.BackgroundColor = ParseColor(c.Sheet.BackgroundColor)
	}
	if c.Sheet.LabelColor != "" {
		theme.LabelColor = ParseColor(c.Sheet.LabelColor)
	}
	if c.Sheet.MissingColor != "" {
		theme.MissingColor = ParseColor(c.Sheet.MissingColor)
	}

	return orchestrator.Config{
		Sources:       sources,
		Selection:     sel,
		SelectionText: c.Indices,

		OutputDir:    c.OutputDir,
		Prefix:       c.Prefix,
		Format:       format,
		Quality:      c.Quality,
		ScaleWidth:   c.ScaleWidth,
		SheetColumns: c.SheetColumns,
		Theme:        theme,

		Jobs: c.Jobs,

		SeekThreshold: c.SeekThreshold,
		PixelFormat:   c.PixelFormat,

		SummaryPath: c.Summary,
		MetricsFile: c.MetricsFile,
	}, nil
}
