package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/user/deepframe/pkg/adapters/osfilesystem"
	"github.com/user/deepframe/pkg/config"
	"github.com/user/deepframe/pkg/mocks"
	"github.com/user/deepframe/pkg/orchestrator"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := newApp(&stdout, io.Discard)
	err := app.Run(append([]string{"deepframe"}, args...))
	return stdout.String(), err
}

// parseExtract runs the extract command with an action that only loads
// the configuration.
func parseExtract(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var cfg config.Config
	cmd := extractCommand()
	cmd.Action = func(c *cli.Context) error {
		var err error
		cfg, err = loadConfig(c, osfilesystem.New())
		return err
	}
	app := &cli.App{
		Name:      "deepframe",
		Commands:  []*cli.Command{cmd},
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run(append([]string{"deepframe", "extract"}, args...))
	return cfg, err
}

func writeMP4(t *testing.T, frames int) string {
	t.Helper()
	data, err := mocks.FragmentedMP4(mocks.SimpleMP4Spec(frames, 5))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runApp(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "deepframe version dev\n", out)

	out, err = runApp(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "deepframe version dev\n", out)
}

func TestInfo_JSON(t *testing.T) {
	path := writeMP4(t, 10)

	out, err := runApp(t, "info", path)
	require.NoError(t, err)

	var report StreamReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, path, report.Source)
	assert.Equal(t, "h264", report.Codec)
	assert.Equal(t, 16, report.Width)
	assert.Equal(t, 16, report.Height)
	assert.Equal(t, 3, report.NumChannels)
	assert.Equal(t, int64(10), report.NumFrames)
	assert.Equal(t, 25.0, report.FPS)
	assert.Equal(t, "25/1", report.FrameRate)
	assert.Equal(t, "1/12800", report.TimeBase)
	assert.Equal(t, int64(10*512), report.Duration)
}

func TestInfo_YAML(t *testing.T) {
	path := writeMP4(t, 4)

	out, err := runApp(t, "info", "--output", "yaml", path)
	require.NoError(t, err)

	var report StreamReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(4), report.NumFrames)
	assert.Contains(t, out, "time_base: 1/12800")
}

func TestInfo_Errors(t *testing.T) {
	_, err := runApp(t, "info")
	assert.EqualError(t, err, "exactly one SOURCE is required")

	_, err = runApp(t, "info", "--output", "xml", writeMP4(t, 2))
	assert.ErrorContains(t, err, `unknown output format "xml"`)

	_, err = runApp(t, "info", filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestExtract_ArgumentErrors(t *testing.T) {
	_, err := runApp(t, "extract", "-i", "0")
	assert.EqualError(t, err, "at least one SOURCE is required")

	_, err = runApp(t, "extract", "-Q", "clip.mp4")
	assert.EqualError(t, err, "--indices is required")

	_, err = runApp(t, "extract", "-Q", "-i", "0", "--format", "gif", "clip.mp4")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestExtract_FailedSourceWritesReports(t *testing.T) {
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.md")
	metricsFile := filepath.Join(dir, "deepframe.prom")

	_, err := runApp(t, "extract",
		"-Q",
		"-i", "0,5",
		"-o", filepath.Join(dir, "out"),
		"--summary", summary,
		"--metrics-file", metricsFile,
		filepath.Join(dir, "missing.mp4"),
	)
	require.ErrorIs(t, err, orchestrator.ErrSourcesFailed)

	md, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Extraction Summary")
	assert.Contains(t, string(md), "missing.mp4")
	assert.Contains(t, string(md), "failed")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `deepframe_sources_total{status="failed"} 1`)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseExtract(t, "-i", "1,2", "clip.mp4")
	require.NoError(t, err)

	want := config.Defaults()
	want.Indices = "1,2"
	assert.Equal(t, want, cfg)
}

func TestLoadConfig_FileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
indices: "0:100:10"
format: sheet
quality: 70
jobs: 2
sheet:
  background_color: "#000000"
`), 0o644))

	cfg, err := parseExtract(t,
		"-c", path,
		"-f", "jpeg",
		"-j", "4",
		"--seek-threshold", "50",
		"--scale-width", "160",
		"-d",
		"clip.mp4",
	)
	require.NoError(t, err)

	assert.Equal(t, "0:100:10", cfg.Indices)
	assert.Equal(t, "jpeg", cfg.Format)
	assert.Equal(t, 70, cfg.Quality)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, int64(50), cfg.SeekThreshold)
	assert.Equal(t, 160, cfg.ScaleWidth)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "#000000", cfg.Sheet.BackgroundColor)
	assert.Equal(t, "#dcdcdc", cfg.Sheet.LabelColor)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := parseExtract(t, "-c", filepath.Join(t.TempDir(), "none.yaml"), "-i", "0", "clip.mp4")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: [1"), 0o644))

	_, err := parseExtract(t, "-c", path, "clip.mp4")
	assert.ErrorContains(t, err, path)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	_, err := parseExtract(t, "-i", "0", "--quality", "0", "clip.mp4")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = parseExtract(t, "-i", "1::0", "clip.mp4")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
