package render

import "math"

type Point struct {
	X, Y float64
}

// Transform rotates about the origin, then translates.
type Transform struct {
	X, Y     float64
	Rotation float64
}

func (t *Transform) SetTranslation(x, y float64) {
	t.X, t.Y = x, y
}

func (t *Transform) SetRotation(rad float64) {
	t.Rotation = rad
}

func (t *Transform) Apply(p Point) Point {
	sin, cos := math.Sincos(t.Rotation)
	return Point{
		X: p.X*cos - p.Y*sin + t.X,
		Y: p.X*sin + p.Y*cos + t.Y,
	}
}

// Geom is a persistent drawing primitive owned by a Viewer. Coordinates are
// y-up; the viewer flips them onto the canvas.
type Geom interface {
	Draw(c *Canvas, height int)
}

// attrs applies transforms in order, innermost first.
type attrs []*Transform

func (a attrs) apply(p Point) Point {
	for _, t := range a {
		p = t.Apply(p)
	}
	return p
}

func toPixel(p Point, height int) (int, int) {
	return int(math.Round(p.X)), height - 1 - int(math.Round(p.Y))
}

type Polygon struct {
	Points []Point
	Filled bool
	attrs
}

func NewPolygon(points []Point, filled bool, transforms ...*Transform) *Polygon {
	return &Polygon{Points: points, Filled: filled, attrs: transforms}
}

func (p *Polygon) Draw(c *Canvas, height int) {
	if len(p.Points) == 0 {
		return
	}
	world := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		world[i] = p.apply(pt)
	}

	for i := range world {
		a := world[i]
		b := world[(i+1)%len(world)]
		x0, y0 := toPixel(a, height)
		x1, y1 := toPixel(b, height)
		c.DrawLine(x0, y0, x1, y1)
	}

	if p.Filled {
		fillPolygon(c, world, height)
	}
}

func fillPolygon(c *Canvas, poly []Point, height int) {
	minX, maxX := poly[0].X, poly[0].X
	minY, maxY := poly[0].Y, poly[0].Y
	for _, p := range poly[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for y := math.Floor(minY); y <= maxY; y++ {
		for x := math.Floor(minX); x <= maxX; x++ {
			if insidePolygon(poly, Point{x, y}) {
				px, py := toPixel(Point{x, y}, height)
				c.Set(px, py)
			}
		}
	}
}

// insidePolygon is the even-odd ray casting test.
func insidePolygon(poly []Point, p Point) bool {
	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

type Line struct {
	From, To Point
	attrs
}

func NewLine(from, to Point, transforms ...*Transform) *Line {
	return &Line{From: from, To: to, attrs: transforms}
}

func (l *Line) Draw(c *Canvas, height int) {
	x0, y0 := toPixel(l.apply(l.From), height)
	x1, y1 := toPixel(l.apply(l.To), height)
	c.DrawLine(x0, y0, x1, y1)
}

type Circle struct {
	Center Point
	Radius float64
	attrs
}

func NewCircle(center Point, radius float64, transforms ...*Transform) *Circle {
	return &Circle{Center: center, Radius: radius, attrs: transforms}
}

func (ci *Circle) Draw(c *Canvas, height int) {
	center := ci.apply(ci.Center)
	r := ci.Radius
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				px, py := toPixel(Point{center.X + x, center.Y + y}, height)
				c.Set(px, py)
			}
		}
	}
}
