package render

import (
	"errors"
	"image"
	"io"
)

var ErrClosed = errors.New("render: viewer closed")

const cursorHome = "\033[H"

// Viewer is a fixed-size drawing surface. Geometry is added once and
// redrawn on every frame; owners animate it through the transforms they
// attached.
type Viewer struct {
	width, height int
	canvas        *Canvas
	geoms         []Geom
	out           io.Writer
	closed        bool
}

func NewViewer(width, height int, out io.Writer) *Viewer {
	if out == nil {
		out = io.Discard
	}
	return &Viewer{
		width:  width,
		height: height,
		canvas: NewPixelCanvas(width, height),
		out:    out,
	}
}

func (v *Viewer) Width() int  { return v.width }
func (v *Viewer) Height() int { return v.height }
func (v *Viewer) Closed() bool {
	return v.closed
}

func (v *Viewer) AddGeom(g Geom) {
	v.geoms = append(v.geoms, g)
}

func (v *Viewer) NumGeoms() int { return len(v.geoms) }

// Render redraws every geom. With returnRGB it returns the frame as an
// image; otherwise the frame is written to the viewer's output.
func (v *Viewer) Render(returnRGB bool) (*image.RGBA, error) {
	if v.closed {
		return nil, ErrClosed
	}

	v.canvas.Clear()
	for _, g := range v.geoms {
		g.Draw(v.canvas, v.height)
	}

	if returnRGB {
		return Rasterize(v.canvas, v.width, v.height), nil
	}

	if _, err := io.WriteString(v.out, cursorHome+frameStyle.Render(v.canvas.String())+"\n"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (v *Viewer) Close() error {
	v.closed = true
	v.geoms = nil
	v.canvas = nil
	return nil
}

// Rasterize expands every sub-pixel of c into one image pixel.
func Rasterize(c *Canvas, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if c.Get(x, y) {
				img.SetRGBA(x, y, Foreground)
			} else {
				img.SetRGBA(x, y, Background)
			}
		}
	}
	return img
}

// FromImage folds an image back into a braille canvas; any pixel brighter
// than the background counts as set.
func FromImage(img image.Image) *Canvas {
	b := img.Bounds()
	c := NewPixelCanvas(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if lit(img.At(x, y)) {
				c.Set(x-b.Min.X, y-b.Min.Y)
			}
		}
	}
	return c
}
