// Package orchestrator coordinates the decode and export stages over a set of sources.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/indices"
	"github.com/user/deepframe/pkg/info"
	"github.com/user/deepframe/pkg/metrics"
	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/plan"
	"github.com/user/deepframe/pkg/ports"
	"github.com/user/deepframe/pkg/summarizer"
)

var (
	// ErrNoSources is returned when Run is called without sources.
	ErrNoSources = errors.New("orchestrator: no sources")

	// ErrSourcesFailed is returned when at least one source produced no output.
	ErrSourcesFailed = errors.New("orchestrator: sources failed")
)

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input
	Sources       []string
	Selection     indices.Selector
	SelectionText string // for the summary

	// Output
	OutputDir    string
	Prefix       string
	Format       pipeline.OutputFormat
	Quality      int
	ScaleWidth   int
	SheetColumns int
	Theme        pipeline.SheetTheme

	// Execution
	Jobs int

	// Extraction settings, reported in the summary
	SeekThreshold int64
	PixelFormat   string

	// Reports
	SummaryPath string
	MetricsFile string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	export := pipeline.DefaultExportInput()
	return Config{
		OutputDir:     ".",
		Format:        export.Format,
		Quality:       export.Quality,
		SheetColumns:  export.SheetColumns,
		Theme:         export.Theme,
		Jobs:          1,
		SeekThreshold: extract.DefaultOptions().SeekThreshold,
	}
}

// Orchestrator coordinates the execution of the pipeline stages.
type Orchestrator struct {
	decodeStage pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult]
	exportStage pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult]
	engine      ports.DecoderEngine
	fs          ports.FileSystem
	sink        ports.DebugSink
	recorder    *metrics.Recorder
	logger      ports.Logger
}

// New creates a new Orchestrator. engine is used to probe frame counts for
// open-ended selections. recorder may be nil.
func New(
	decodeStage pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult],
	exportStage pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult],
	engine ports.DecoderEngine,
	fs ports.FileSystem,
	sink ports.DebugSink,
	recorder *metrics.Recorder,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		decodeStage: decodeStage,
		exportStage: exportStage,
		engine:      engine,
		fs:          fs,
		sink:        sink,
		recorder:    recorder,
		logger:      logger,
	}
}

// outcome is the result of one source.
type outcome struct {
	info summarizer.SourceInfo
	err  error
}

// Run processes every source. A failing source does not stop the others;
// Run returns ErrSourcesFailed after all sources finished if any failed.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	if len(config.Sources) == 0 {
		return RunResult{}, ErrNoSources
	}
	jobs := config.Jobs
	if jobs < 1 {
		jobs = 1
	}

	o.logger.Info("Extracting frames from %d sources with %d jobs", len(config.Sources), jobs)
	start := time.Now()

	dirs := outputDirs(config.OutputDir, config.Sources)
	outcomes := make([]outcome, len(config.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, source := range config.Sources {
		i, source := i, source
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = outcome{err: err, info: summarizer.SourceInfo{Source: source}}
				return err
			}
			outcomes[i] = o.process(gctx, config, source, dirs[i])
			if errors.Is(outcomes[i].err, context.Canceled) || errors.Is(outcomes[i].err, context.DeadlineExceeded) {
				return outcomes[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.Error("Extraction interrupted: %s", err)
		return RunResult{}, err
	}

	builder := summarizer.NewBuilder().WithSettings(summarizer.Settings{
		Format:        string(config.Format),
		PixelFormat:   config.PixelFormat,
		SeekThreshold: config.SeekThreshold,
		ScaleWidth:    config.ScaleWidth,
		Jobs:          jobs,
		Selection:     config.SelectionText,
	})
	failed := 0
	for _, out := range outcomes {
		if out.err != nil {
			failed++
			builder.AddFailure(out.info.Source, out.err)
			continue
		}
		builder.AddSource(out.info)
	}
	summary := builder.Build()

	if config.SummaryPath != "" {
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), o.fs)
		if err := writer.Write(config.SummaryPath, summary); err != nil {
			o.logger.Warn("Failed to write summary: %s", err)
		} else {
			o.logger.Info("Summary written to %s", config.SummaryPath)
		}
	}

	if config.MetricsFile != "" && o.recorder != nil {
		if err := o.recorder.WriteFile(config.MetricsFile); err != nil {
			o.logger.Warn("Failed to write metrics: %s", err)
		}
	}

	totals := summary.Totals()
	o.logger.Info("Finished %d sources in %d ms: %d files, %d frames missing",
		totals.Sources, time.Since(start).Milliseconds(), totals.Files, totals.Missing)

	result := RunResult{Summary: summary, Failed: failed}
	if failed > 0 {
		return result, fmt.Errorf("%w: %d of %d", ErrSourcesFailed, failed, len(config.Sources))
	}
	return result, nil
}

func (o *Orchestrator) process(ctx context.Context, config Config, source, dir string) outcome {
	out := outcome{info: summarizer.SourceInfo{Source: source}}
	fail := func(err error) outcome {
		o.logger.Error("Failed to process %s: %s", source, err)
		if o.recorder != nil {
			o.recorder.Failed(source)
		}
		out.err = err
		return out
	}

	idx, err := o.resolve(config.Selection, source)
	if err != nil {
		return fail(err)
	}

	if o.sink.Enabled() {
		if p, err := plan.Build(idx); err == nil {
			if data, err := json.MarshalIndent(p, "", "  "); err == nil {
				o.sink.SavePlanJSON(source, data)
			}
		}
	}

	o.logger.Info("Decoding %d frames from %s", len(idx), source)
	decoded, err := o.decodeStage.Execute(ctx, pipeline.DecodeInput{Source: source, Indices: idx})
	if err != nil {
		return fail(err)
	}
	res := decoded.Result

	if o.recorder != nil {
		o.recorder.Observe(source, res)
	}
	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(debugResultOf(res), "", "  "); err == nil {
			o.sink.SaveResultJSON(source, data)
		}
	}
	if !res.Complete() {
		o.logger.Warn("%d of %d frames not found in %s", len(res.Missing), len(idx), source)
	}

	exported, err := o.exportStage.Execute(ctx, pipeline.ExportInput{
		Decoded:      decoded,
		OutputDir:    dir,
		Prefix:       config.Prefix,
		Format:       config.Format,
		Quality:      config.Quality,
		ScaleWidth:   config.ScaleWidth,
		SheetColumns: config.SheetColumns,
		Theme:        config.Theme,
	})
	if err != nil {
		return fail(err)
	}

	o.logger.Info("Wrote %d files (%d bytes) for %s", len(exported.Files), exported.Bytes, source)

	distinct := 0
	if p, err := plan.Build(idx); err == nil {
		distinct = p.Distinct()
	}
	out.info = summarizer.SourceInfo{
		Source:        source,
		Codec:         res.Stream.Codec,
		Width:         res.Stream.Width,
		Height:        res.Stream.Height,
		FrameRate:     res.Stream.FrameRate.String(),
		Requested:     len(idx),
		Distinct:      distinct,
		Missing:       res.Missing,
		PacketsRead:   res.Stats.PacketsRead,
		FramesDecoded: res.Stats.FramesDecoded,
		Seeks:         res.Stats.Seeks,
		DurationMs:    res.Stats.Duration.Milliseconds(),
		Files:         exported.Files,
		Bytes:         exported.Bytes,
	}
	return out
}

// resolve expands the selection for source, probing the frame count only
// when the selection has open-ended slices.
func (o *Orchestrator) resolve(sel indices.Selector, source string) ([]int64, error) {
	var length int64
	if sel.NeedsLength() {
		stream, err := info.Stream(o.engine, source)
		if err != nil {
			return nil, err
		}
		length = info.FrameCount(stream)
		if length <= 0 {
			return nil, fmt.Errorf("%w: %s reports no frame count", indices.ErrUnbounded, source)
		}
		o.logger.Debug("Resolved frame count of %s: %d", source, length)
	}
	return sel.Indices(length)
}

// outputDirs gives every source its own directory below base when there is
// more than one source.
func outputDirs(base string, sources []string) []string {
	dirs := make([]string, len(sources))
	if len(sources) == 1 {
		dirs[0] = base
		return dirs
	}
	used := make(map[string]int)
	for i, source := range sources {
		name := pipeline.SourceName(source)
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		dirs[i] = filepath.Join(base, name)
	}
	return dirs
}

// debugResult is the JSON shape saved to the debug sink.
type debugResult struct {
	State   string           `json:"state"`
	Missing []int            `json:"missing"`
	Stats   extract.Stats    `json:"stats"`
	Stream  ports.StreamInfo `json:"stream"`
	Dims    []int            `json:"dims"`
}

func debugResultOf(res *extract.Result) debugResult {
	return debugResult{
		State:   res.State.String(),
		Missing: res.Missing,
		Stats:   res.Stats,
		Stream:  res.Stream,
		Dims:    res.Buffer.Dims(),
	}
}

// RunResult contains the results of a run for summary generation.
type RunResult struct {
	Summary *summarizer.Summary
	Failed  int
}
