package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/user/deepframe/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	mu       sync.Mutex
	Encoded  []ports.ImageFormat
	Canvases []*Canvas
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	c := &Canvas{width: width, height: height}
	m.mu.Lock()
	m.Canvases = append(m.Canvases, c)
	m.mu.Unlock()
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	m.mu.Lock()
	m.Encoded = append(m.Encoded, format)
	m.mu.Unlock()
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte(format.String()), nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	width  int
	height int

	Images  []image.Rectangle
	Strokes []image.Rectangle
	Texts   []string
}

func (m *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	m.Images = append(m.Images, image.Rect(x, y, x+width, y+height))
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {
	m.Strokes = append(m.Strokes, image.Rect(x, y, x+w, y+h))
}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, text)
}

func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	return float64(len(text)) * style.FontSize * 0.6, style.FontSize
}

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
