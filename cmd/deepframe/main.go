// Package main provides the CLI entry point for deepframe.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/deepframe/pkg/adapters/filesink"
	"github.com/user/deepframe/pkg/adapters/ggrenderer"
	"github.com/user/deepframe/pkg/adapters/logger"
	"github.com/user/deepframe/pkg/adapters/mp4engine"
	"github.com/user/deepframe/pkg/adapters/nullsink"
	"github.com/user/deepframe/pkg/adapters/osfilesystem"
	"github.com/user/deepframe/pkg/config"
	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/metrics"
	"github.com/user/deepframe/pkg/orchestrator"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/stages/decode"
	"github.com/user/deepframe/pkg/stages/export"
)

var version = "dev"

// DefaultConfigPath is loaded when present and --config is not given.
const DefaultConfigPath = "deepframe.yaml"

// Flag categories
const (
	categorySelection = "Selection"
	categoryOutput    = "Output"
	categoryDecoding  = "Decoding"
	categoryReports   = "Reports"
	categoryDebug     = "Debug"
	categoryLogging   = "Logging"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, l10n.F("deepframe version %s", c.App.Version))
	}

	return &cli.App{
		Name:        "deepframe",
		Usage:       l10n.T("Extract arbitrary frames from videos into RGB buffers and images"),
		Description: l10n.T("deepframe decodes only what is needed to pull the requested frames out of a video, seeking over large gaps."),
		Version:     version,
		Writer:      stdout,
		ErrWriter:   stderr,
		Commands: []*cli.Command{
			extractCommand(),
			infoCommand(),
			versionCommand(),
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:        "extract",
		Usage:       l10n.T("Extract frames from one or more videos"),
		Description: l10n.T("Decode the frames selected by --indices from every SOURCE and write them as images, raw RGB or a contact sheet."),
		ArgsUsage:   "SOURCE...",
		Flags: []cli.Flag{
			// Selection
			&cli.StringFlag{Name: "indices", Aliases: []string{"i"}, Category: l10n.T(categorySelection),
				Usage: l10n.T("Frames to extract, e.g. 5,2,2,0 or 0:100:5 or ::-10")},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Category: l10n.T(categorySelection), Value: DefaultConfigPath,
				Usage: l10n.T("YAML configuration file (loaded when present)")},

			// Output
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Category: l10n.T(categoryOutput),
				Usage: l10n.T("Output directory (default: .)")},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Category: l10n.T(categoryOutput),
				Usage: l10n.T("Output format: png, jpeg, raw or sheet (default: png)")},
			&cli.StringFlag{Name: "prefix", Category: l10n.T(categoryOutput),
				Usage: l10n.T("File name prefix (default: frame)")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Category: l10n.T(categoryOutput),
				Usage: l10n.T("JPEG quality 1-100 (default: 90)")},
			&cli.IntFlag{Name: "scale-width", Category: l10n.T(categoryOutput),
				Usage: l10n.T("Downscale images to this width, keeping the aspect ratio (0 = original size)")},
			&cli.IntFlag{Name: "sheet-columns", Category: l10n.T(categoryOutput),
				Usage: l10n.T("Columns of the contact sheet (default: 4)")},

			// Decoding
			&cli.Int64Flag{Name: "seek-threshold", Category: l10n.T(categoryDecoding),
				Usage: l10n.T("Frame distance above which a seek is issued instead of decoding (default: 300)")},
			&cli.StringFlag{Name: "pixel-format", Category: l10n.T(categoryDecoding),
				Usage: l10n.T("Force the decoder output pixel format (yuv420p, nv12, gray, rgb24, rgba)")},
			&cli.StringFlag{Name: "ffmpeg-path", Category: l10n.T(categoryDecoding),
				Usage: l10n.T("Path to the ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)")},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Category: l10n.T(categoryDecoding),
				Usage: l10n.T("Number of sources processed in parallel (default: 1)")},

			// Reports
			&cli.StringFlag{Name: "summary", Category: l10n.T(categoryReports),
				Usage: l10n.T("Write a Markdown summary to this file")},
			&cli.StringFlag{Name: "metrics-file", Category: l10n.T(categoryReports),
				Usage: l10n.T("Write Prometheus metrics in text format to this file")},

			// Debug
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Category: l10n.T(categoryDebug),
				Usage: l10n.T("Save plans, results and frames for inspection")},
			&cli.StringFlag{Name: "debug-dir", Category: l10n.T(categoryDebug),
				Usage: l10n.T("Directory for debug output (default: ./debug)")},

			// Logging
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: l10n.T(categoryLogging),
				Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Category: l10n.T(categoryLogging),
				Usage: l10n.T("Suppress all log output")},
		},
		Action: runExtract,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			cli.VersionPrinter(c)
			return nil
		},
	}
}

// runExtract executes the extract command.
func runExtract(c *cli.Context) error {
	sources := c.Args().Slice()
	if len(sources) == 0 {
		return errors.New(l10n.T("at least one SOURCE is required"))
	}

	fs := osfilesystem.New()

	cfg, err := loadConfig(c, fs)
	if err != nil {
		return err
	}
	if cfg.Indices == "" {
		return errors.New(l10n.T("--indices is required"))
	}

	// Create logger
	log := newLogger(cfg.LogLevel, c.Bool("quiet"))

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create adapters
	renderer := ggrenderer.New()
	engine := mp4engine.New(mp4engine.Options{
		FFmpegPath:  cfg.FFmpegPath,
		PixelFormat: ports.PixelFormat(cfg.PixelFormat),
	}, log)

	// Create debug sink
	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	// Create stages
	extractor := extract.New(engine, log, cfg.ExtractOptions())
	decodeStage := decode.NewStage(extractor, log)
	exportStage := export.NewStage(fs, renderer, sink, log)

	// Create orchestrator
	orch := orchestrator.New(
		decodeStage,
		exportStage,
		engine,
		fs,
		sink,
		metrics.NewRecorder(),
		log,
	)

	// Build orchestrator config
	orchConfig, err := cfg.ToOrchestratorConfig(sources)
	if err != nil {
		return err
	}

	_, err = orch.Run(ctx, orchConfig)
	return err
}

// loadConfig reads the configuration file and applies command-line overrides.
// A missing file is an error only when --config was given explicitly.
func loadConfig(c *cli.Context, fs ports.FileSystem) (config.Config, error) {
	cfg := config.Defaults()

	if path := c.String("config"); path != "" {
		exists, err := fs.Exists(path)
		if err != nil {
			return cfg, err
		}
		switch {
		case exists:
			data, err := fs.ReadFile(path)
			if err != nil {
				return cfg, err
			}
			if cfg, err = config.Parse(data); err != nil {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		case c.IsSet("config"):
			return cfg, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
	}

	applyFlags(c, &cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	stringFlags := map[string]*string{
		"indices":      &cfg.Indices,
		"output":       &cfg.OutputDir,
		"format":       &cfg.Format,
		"prefix":       &cfg.Prefix,
		"pixel-format": &cfg.PixelFormat,
		"ffmpeg-path":  &cfg.FFmpegPath,
		"summary":      &cfg.Summary,
		"metrics-file": &cfg.MetricsFile,
		"debug-dir":    &cfg.DebugDir,
		"log-level":    &cfg.LogLevel,
	}
	for name, dst := range stringFlags {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	intFlags := map[string]*int{
		"quality":       &cfg.Quality,
		"scale-width":   &cfg.ScaleWidth,
		"sheet-columns": &cfg.SheetColumns,
		"jobs":          &cfg.Jobs,
	}
	for name, dst := range intFlags {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	if c.IsSet("seek-threshold") {
		cfg.SeekThreshold = c.Int64("seek-threshold")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
}

func newLogger(level string, quiet bool) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}
