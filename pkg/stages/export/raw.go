package export

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// RawHeader is the YAML sidecar describing a raw frame dump.
type RawHeader struct {
	Source      string  `yaml:"source"`
	Data        string  `yaml:"data"`
	PixelFormat string  `yaml:"pixel_format"`
	Dims        []int   `yaml:"dims"`
	Strides     []int   `yaml:"strides"`
	Indices     []int64 `yaml:"indices"`
	Missing     []int   `yaml:"missing,omitempty"`
	FrameRate   string  `yaml:"frame_rate"`
	TimeBase    string  `yaml:"time_base"`
}

// writeRaw dumps the whole buffer unscaled, slot after slot.
func (s *Stage) writeRaw(w *writer, input pipeline.ExportInput) error {
	res := input.Decoded.Result
	dataName := input.Prefix + ".rgb"

	header := RawHeader{
		Source:      input.Decoded.Source,
		Data:        dataName,
		PixelFormat: string(ports.PixelFormatRGB24),
		Dims:        res.Buffer.Dims(),
		Strides:     res.Buffer.Strides(),
		Indices:     input.Decoded.Indices,
		Missing:     res.Missing,
		FrameRate:   res.Stream.FrameRate.String(),
		TimeBase:    res.Stream.TimeBase.String(),
	}
	meta, err := yaml.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal raw header: %w", err)
	}

	if input.ScaleWidth > 0 {
		s.logger.Debug("Raw output ignores scale width %d", input.ScaleWidth)
	}

	if err := w.write(dataName, res.Buffer.Bytes()); err != nil {
		return err
	}
	return w.write(input.Prefix+".yaml", meta)
}
