package render

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
	"strings"
)

var palette = color.Palette{Background, Foreground}

// Recorder accumulates rgb frames for an animated GIF.
type Recorder struct {
	frames []*image.Paletted
	delay  int
}

// NewRecorder stores frames shown for delay hundredths of a second each.
func NewRecorder(delay int) *Recorder {
	if delay <= 0 {
		delay = 2
	}
	return &Recorder{delay: delay}
}

func (r *Recorder) Capture(img image.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	frame := image.NewPaletted(b, palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if lit(img.At(x, y)) {
				frame.SetColorIndex(x, y, 1)
			}
		}
	}
	r.frames = append(r.frames, frame)
}

func (r *Recorder) Len() int { return len(r.frames) }

func (r *Recorder) WriteGIF(w io.Writer) error {
	if len(r.frames) == 0 {
		return fmt.Errorf("render: no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.delay)
	}
	return gif.EncodeAll(w, &anim)
}

func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteGIF(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ImageSVG draws every lit pixel of img as a dot.
func ImageSVG(img image.Image, scale float64) string {
	if img == nil {
		return ""
	}
	b := img.Bounds()
	width := float64(b.Dx()) * scale
	height := float64(b.Dy()) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff88">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !lit(img.At(x, y)) {
				continue
			}
			cx := float64(x-b.Min.X)*scale + scale/2
			cy := float64(y-b.Min.Y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

func lit(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	br, bg, bb, _ := Background.RGBA()
	return r+g+b > br+bg+bb
}
