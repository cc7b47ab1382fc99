package ports

import (
	"image"
)

// DebugSink saves intermediate extraction artefacts for troubleshooting.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SavePlanJSON saves the decode plan of a source as JSON.
	SavePlanJSON(source string, data []byte) error

	// SaveResultJSON saves the extraction statistics of a source as JSON.
	SaveResultJSON(source string, data []byte) error

	// SaveFrame saves one extracted slot as an image.
	SaveFrame(source string, slot int, img image.Image) error
}
