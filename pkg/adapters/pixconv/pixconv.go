// Package pixconv converts decoded frames to packed RGB24.
package pixconv

import (
	"fmt"

	"github.com/user/deepframe/pkg/ports"
)

// Converter converts frames of a fixed size and pixel format to RGB24.
type Converter struct {
	width  int
	height int
	format ports.PixelFormat
}

// New creates a Converter. Unsupported formats return ports.ErrUnsupportedPixelFormat.
func New(width, height int, format ports.PixelFormat) (*Converter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixconv: invalid size %dx%d", width, height)
	}
	if !Supported(format) {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedPixelFormat, format)
	}
	return &Converter{width: width, height: height, format: format}, nil
}

// Supported reports whether format can be converted.
func Supported(format ports.PixelFormat) bool {
	switch format {
	case ports.PixelFormatYUV420P, ports.PixelFormatNV12, ports.PixelFormatGray,
		ports.PixelFormatRGB24, ports.PixelFormatRGBA:
		return true
	}
	return false
}

// PlaneLayout returns the plane sizes and strides of a tightly packed frame,
// the layout ffmpeg's rawvideo muxer writes.
func PlaneLayout(format ports.PixelFormat, width, height int) (sizes, strides []int) {
	cw, ch := (width+1)/2, (height+1)/2
	switch format {
	case ports.PixelFormatYUV420P:
		return []int{width * height, cw * ch, cw * ch}, []int{width, cw, cw}
	case ports.PixelFormatNV12:
		return []int{width * height, 2 * cw * ch}, []int{width, 2 * cw}
	case ports.PixelFormatGray:
		return []int{width * height}, []int{width}
	case ports.PixelFormatRGB24:
		return []int{3 * width * height}, []int{3 * width}
	case ports.PixelFormatRGBA:
		return []int{4 * width * height}, []int{4 * width}
	}
	return nil, nil
}

// FrameSize returns the byte size of one tightly packed frame.
func FrameSize(format ports.PixelFormat, width, height int) int {
	sizes, _ := PlaneLayout(format, width, height)
	total := 0
	for _, s := range sizes {
		total += s
	}
	return total
}

// Convert writes frame into dst as packed RGB24 rows.
func (c *Converter) Convert(frame *ports.Frame, dst []byte) error {
	if frame.Width != c.width || frame.Height != c.height {
		return fmt.Errorf("pixconv: frame is %dx%d, converter expects %dx%d",
			frame.Width, frame.Height, c.width, c.height)
	}
	if frame.Format != c.format {
		return fmt.Errorf("pixconv: frame format %q, converter expects %q", frame.Format, c.format)
	}
	if len(dst) < c.width*c.height*ports.OutputChannels {
		return fmt.Errorf("pixconv: destination holds %d bytes, need %d",
			len(dst), c.width*c.height*ports.OutputChannels)
	}
	sizes, _ := PlaneLayout(c.format, c.width, c.height)
	if len(frame.Planes) < len(sizes) || len(frame.Strides) < len(sizes) {
		return fmt.Errorf("pixconv: frame has %d planes, need %d", len(frame.Planes), len(sizes))
	}

	switch c.format {
	case ports.PixelFormatYUV420P:
		c.yuv420p(frame, dst)
	case ports.PixelFormatNV12:
		c.nv12(frame, dst)
	case ports.PixelFormatGray:
		c.gray(frame, dst)
	case ports.PixelFormatRGB24:
		c.packed(frame, dst, 3)
	case ports.PixelFormatRGBA:
		c.packed(frame, dst, 4)
	}
	return nil
}

func (c *Converter) yuv420p(frame *ports.Frame, dst []byte) {
	yPlane, uPlane, vPlane := frame.Planes[0], frame.Planes[1], frame.Planes[2]
	yStride, uStride, vStride := frame.Strides[0], frame.Strides[1], frame.Strides[2]

	for y := 0; y < c.height; y++ {
		row := dst[y*c.width*3:]
		for x := 0; x < c.width; x++ {
			yVal := int(yPlane[y*yStride+x])
			uVal := int(uPlane[(y/2)*uStride+x/2])
			vVal := int(vPlane[(y/2)*vStride+x/2])
			putRGB(row[x*3:], yVal, uVal, vVal)
		}
	}
}

func (c *Converter) nv12(frame *ports.Frame, dst []byte) {
	yPlane, uvPlane := frame.Planes[0], frame.Planes[1]
	yStride, uvStride := frame.Strides[0], frame.Strides[1]

	for y := 0; y < c.height; y++ {
		row := dst[y*c.width*3:]
		for x := 0; x < c.width; x++ {
			uv := (y/2)*uvStride + (x/2)*2
			putRGB(row[x*3:], int(yPlane[y*yStride+x]), int(uvPlane[uv]), int(uvPlane[uv+1]))
		}
	}
}

func (c *Converter) gray(frame *ports.Frame, dst []byte) {
	plane, stride := frame.Planes[0], frame.Strides[0]
	for y := 0; y < c.height; y++ {
		row := dst[y*c.width*3:]
		for x := 0; x < c.width; x++ {
			v := plane[y*stride+x]
			row[x*3], row[x*3+1], row[x*3+2] = v, v, v
		}
	}
}

func (c *Converter) packed(frame *ports.Frame, dst []byte, bpp int) {
	plane, stride := frame.Planes[0], frame.Strides[0]
	for y := 0; y < c.height; y++ {
		src := plane[y*stride:]
		row := dst[y*c.width*3:]
		if bpp == 3 {
			copy(row[:c.width*3], src[:c.width*3])
			continue
		}
		for x := 0; x < c.width; x++ {
			row[x*3], row[x*3+1], row[x*3+2] = src[x*bpp], src[x*bpp+1], src[x*bpp+2]
		}
	}
}

// putRGB writes one BT.601 limited-range pixel.
func putRGB(dst []byte, yVal, uVal, vVal int) {
	c := yVal - 16
	d := uVal - 128
	e := vVal - 128

	dst[0] = clamp((298*c + 409*e + 128) >> 8)
	dst[1] = clamp((298*c - 100*d - 208*e + 128) >> 8)
	dst[2] = clamp((298*c + 516*d + 128) >> 8)
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

var _ ports.Converter = (*Converter)(nil)
