// Package decode implements the frame extraction stage.
package decode

import (
	"context"
	"fmt"

	"github.com/user/deepframe/pkg/extract"
	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// Stage extracts the requested frames of one source.
type Stage struct {
	extractor *extract.Extractor
	logger    ports.Logger
}

// NewStage creates a new decode stage.
func NewStage(extractor *extract.Extractor, logger ports.Logger) *Stage {
	return &Stage{
		extractor: extractor,
		logger:    logger.WithComponent("decode"),
	}
}

// Execute runs one extraction call. Cancellation is checked before the call
// starts; an extraction in progress runs to completion.
func (s *Stage) Execute(ctx context.Context, input pipeline.DecodeInput) (pipeline.DecodeResult, error) {
	result := pipeline.DecodeResult{
		Source:  input.Source,
		Indices: input.Indices,
	}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	s.logger.Debug("Decoding %d frames from %s", len(input.Indices), input.Source)

	res, err := s.extractor.Extract(input.Source, input.Indices)
	if err != nil {
		return result, fmt.Errorf("extract %s: %w", input.Source, err)
	}
	result.Result = res

	s.logger.Debug("Decoded %s: %d packets, %d frames, %d seeks",
		input.Source, res.Stats.PacketsRead, res.Stats.FramesDecoded, res.Stats.Seeks)

	return result, nil
}
