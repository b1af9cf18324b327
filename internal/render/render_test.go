package render

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"math"
	"strings"
	"testing"
)

func TestCanvasSetGet(t *testing.T) {
	c := NewPixelCanvas(10, 8)
	if c.Width != 5 || c.Height != 2 {
		t.Fatalf("expected 5x2 cells, got %dx%d", c.Width, c.Height)
	}

	c.Set(3, 5)
	if !c.Get(3, 5) {
		t.Error("pixel not set")
	}
	if c.Get(2, 5) {
		t.Error("neighbour pixel should be clear")
	}

	c.Set(-1, 0)
	c.Set(100, 100)
	if c.Get(-1, 0) || c.Get(100, 100) {
		t.Error("out of bounds pixels should read as clear")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewPixelCanvas(20, 20)
	c.DrawLine(0, 0, 9, 9)

	for i := 0; i <= 9; i++ {
		if !c.Get(i, i) {
			t.Errorf("diagonal pixel (%d,%d) missing", i, i)
		}
	}

	c.Clear()
	for i := 0; i <= 9; i++ {
		if c.Get(i, i) {
			t.Fatal("Clear left pixels set")
		}
	}
}

func TestTransformApply(t *testing.T) {
	tr := &Transform{X: 10, Y: 5, Rotation: math.Pi / 2}
	p := tr.Apply(Point{1, 0})

	if math.Abs(p.X-10) > 1e-9 || math.Abs(p.Y-6) > 1e-9 {
		t.Errorf("Apply = %+v, want {10 6}", p)
	}
}

func TestFilledPolygon(t *testing.T) {
	c := NewPixelCanvas(20, 20)
	square := NewPolygon([]Point{{2, 2}, {2, 8}, {8, 8}, {8, 2}}, true)
	square.Draw(c, 20)

	// y-up (5,5) lands at canvas row 20-1-5.
	if !c.Get(5, 14) {
		t.Error("polygon interior not filled")
	}
	if c.Get(15, 14) {
		t.Error("pixel outside polygon was set")
	}
}

func TestViewerRenderRGB(t *testing.T) {
	v := NewViewer(40, 20, nil)
	tr := &Transform{}
	v.AddGeom(NewLine(Point{0, 0}, Point{10, 0}, tr))
	tr.SetTranslation(5, 10)

	img, err := v.Render(true)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 40, 20) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if img.RGBAAt(5, 9) != Foreground {
		t.Error("translated line not drawn at (5, 9)")
	}
	if img.RGBAAt(0, 0) != Background {
		t.Error("background pixel drawn")
	}
}

func TestViewerRenderHuman(t *testing.T) {
	var buf bytes.Buffer
	v := NewViewer(20, 8, &buf)
	v.AddGeom(NewCircle(Point{10, 4}, 2))

	img, err := v.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if img != nil {
		t.Error("human mode should not return an image")
	}
	out := buf.String()
	if !strings.HasPrefix(out, cursorHome) {
		t.Error("human frame should start by homing the cursor")
	}
	lit := false
	for _, r := range out {
		if r > brailleBlank && r <= 0x28ff {
			lit = true
			break
		}
	}
	if !lit {
		t.Errorf("expected drawn braille cells, got %q", out)
	}
}

func TestViewerClose(t *testing.T) {
	v := NewViewer(10, 10, nil)
	v.AddGeom(NewLine(Point{0, 0}, Point{1, 1}))

	if err := v.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if !v.Closed() || v.NumGeoms() != 0 {
		t.Error("close should release geometry")
	}
	if _, err := v.Render(true); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	c := NewPixelCanvas(16, 16)
	c.DrawLine(0, 15, 15, 0)

	back := FromImage(Rasterize(c, 16, 16))
	if back.String() != c.String() {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", back.String(), c.String())
	}
}

func TestRecorderGIF(t *testing.T) {
	c := NewPixelCanvas(8, 8)
	rec := NewRecorder(0)

	for i := 0; i < 3; i++ {
		c.Set(i, i)
		rec.Capture(Rasterize(c, 8, 8))
	}
	rec.Capture(nil)

	if rec.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", rec.Len())
	}

	var buf bytes.Buffer
	if err := rec.WriteGIF(&buf); err != nil {
		t.Fatalf("write gif failed: %v", err)
	}
	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("decode gif failed: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Errorf("decoded %d frames, want 3", len(anim.Image))
	}
}

func TestRecorderEmpty(t *testing.T) {
	if err := NewRecorder(2).WriteGIF(&bytes.Buffer{}); err == nil {
		t.Error("expected error for empty recording")
	}
}

func TestImageSVG(t *testing.T) {
	c := NewPixelCanvas(4, 4)
	c.Set(1, 1)
	c.Set(2, 2)

	svg := ImageSVG(Rasterize(c, 4, 4), 2)
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 dots, got %d", got)
	}
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("svg document malformed")
	}
	if ImageSVG(nil, 1) != "" {
		t.Error("nil image should give empty svg")
	}
}
