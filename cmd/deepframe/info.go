package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/user/deepframe/pkg/adapters/logger"
	"github.com/user/deepframe/pkg/adapters/mp4engine"
	"github.com/user/deepframe/pkg/info"
	"github.com/user/deepframe/pkg/ports"
)

// StreamReport is the document printed by the info command.
type StreamReport struct {
	Source      string  `json:"source" yaml:"source"`
	Codec       string  `json:"codec" yaml:"codec"`
	Width       int     `json:"width" yaml:"width"`
	Height      int     `json:"height" yaml:"height"`
	NumChannels int     `json:"num_channels" yaml:"num_channels"`
	NumFrames   int64   `json:"num_frames" yaml:"num_frames"`
	FPS         float64 `json:"fps" yaml:"fps"`
	FrameRate   string  `json:"frame_rate" yaml:"frame_rate"`
	TimeBase    string  `json:"time_base" yaml:"time_base"`
	StartTime   int64   `json:"start_time" yaml:"start_time"`
	Duration    int64   `json:"duration" yaml:"duration"`
}

func newStreamReport(source string, stream ports.StreamInfo) StreamReport {
	meta := info.Map(stream)
	return StreamReport{
		Source:      source,
		Codec:       stream.Codec,
		Width:       stream.Width,
		Height:      stream.Height,
		NumChannels: int(meta[info.KeyNumChannels]),
		NumFrames:   info.FrameCount(stream),
		FPS:         meta[info.KeyFPS],
		FrameRate:   stream.FrameRate.String(),
		TimeBase:    stream.TimeBase.String(),
		StartTime:   stream.StartTime,
		Duration:    stream.Duration,
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:        "info",
		Usage:       l10n.T("Show stream information of a video"),
		Description: l10n.T("Read the container of SOURCE and print its video stream without decoding any frame."),
		ArgsUsage:   "SOURCE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "json",
				Usage: l10n.T("Output format (json or yaml)")},
			&cli.StringFlag{Name: "ffmpeg-path",
				Usage: l10n.T("Path to the ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)")},
		},
		Action: runInfo,
	}
}

// runInfo executes the info command.
func runInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("exactly one SOURCE is required"))
	}
	source := c.Args().First()

	engine := mp4engine.New(mp4engine.Options{FFmpegPath: c.String("ffmpeg-path")}, logger.NewNoop())
	stream, err := info.Stream(engine, source)
	if err != nil {
		return err
	}
	report := newStreamReport(source, stream)

	var data []byte
	switch c.String("output") {
	case "json":
		data, err = json.MarshalIndent(report, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(report)
	default:
		return fmt.Errorf(l10n.T("unknown output format %q (json or yaml)"), c.String("output"))
	}
	if err != nil {
		return err
	}

	_, err = c.App.Writer.Write(data)
	return err
}
