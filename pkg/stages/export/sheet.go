package export

import (
	"context"
	"fmt"

	"github.com/user/deepframe/pkg/pipeline"
	"github.com/user/deepframe/pkg/ports"
)

// DefaultTileWidth bounds contact sheet tiles when no scale width is set.
const DefaultTileWidth = 320

// SheetLayout positions the tiles of a contact sheet.
type SheetLayout struct {
	Canvas  pipeline.Dimension
	Tile    pipeline.Dimension
	Columns int
	Rows    int
	Gap     int
	Label   int
}

// Origin returns the top-left corner of the tile for slot.
func (l SheetLayout) Origin(slot int) (int, int) {
	col := slot % l.Columns
	row := slot / l.Columns
	x := l.Gap + col*(l.Tile.Width+l.Gap)
	y := l.Gap + row*(l.Tile.Height+l.Label+l.Gap)
	return x, y
}

// Layout computes the contact sheet geometry for n tiles of frame size.
func Layout(n int, frame pipeline.Dimension, input pipeline.ExportInput) SheetLayout {
	width := input.ScaleWidth
	if width <= 0 {
		width = DefaultTileWidth
	}
	tile := frame.ScaleTo(width)

	cols := input.SheetColumns
	if cols > n {
		cols = n
	}
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols

	gap := input.Theme.Gap
	label := input.Theme.LabelHeight
	return SheetLayout{
		Canvas: pipeline.Dimension{
			Width:  cols*tile.Width + (cols+1)*gap,
			Height: rows*(tile.Height+label) + (rows+1)*gap,
		},
		Tile:    tile,
		Columns: cols,
		Rows:    rows,
		Gap:     gap,
		Label:   label,
	}
}

func (s *Stage) writeSheet(ctx context.Context, w *writer, input pipeline.ExportInput) error {
	res := input.Decoded.Result
	source := input.Decoded.Source
	missing := missingSet(res)
	theme := input.Theme

	n := len(input.Decoded.Indices)
	layout := Layout(n, pipeline.Dimension{Width: res.Stream.Width, Height: res.Stream.Height}, input)
	canvas := s.renderer.CreateCanvas(layout.Canvas.Width, layout.Canvas.Height, theme.BackgroundColor)

	style := ports.TextStyle{
		FontSize: theme.FontSize,
		Color:    theme.LabelColor,
		Align:    ports.AlignCenter,
	}

	for slot := 0; slot < n; slot++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		x, y := layout.Origin(slot)
		if missing[slot] {
			canvas.DrawRect(x, y, layout.Tile.Width, layout.Tile.Height, theme.MissingColor)
			canvas.DrawRectStroke(x, y, layout.Tile.Width, layout.Tile.Height, theme.LabelColor, 1)
		} else {
			img, err := s.slotImage(source, res, slot)
			if err != nil {
				return err
			}
			canvas.DrawImageScaled(img, x, y, layout.Tile.Width, layout.Tile.Height)
		}

		frame := input.Decoded.Indices[slot]
		if frame < 0 {
			frame = 0
		}
		label := sheetLabel(slot, frame, missing[slot])
		if tw, _ := canvas.MeasureText(label, style); int(tw) > layout.Tile.Width {
			label = fmt.Sprintf("%d", frame)
		}
		canvas.DrawText(label, x+layout.Tile.Width/2, y+layout.Tile.Height+layout.Label/2, style)
	}

	data, err := s.renderer.EncodeImage(canvas.ToImage(), ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	return w.write(input.Prefix+"-sheet.png", data)
}

func sheetLabel(slot int, frame int64, missing bool) string {
	if missing {
		return fmt.Sprintf("#%d frame %d (missing)", slot, frame)
	}
	return fmt.Sprintf("#%d frame %d", slot, frame)
}
