// Package shape fills the primitive shapes the eyes are built from directly
// into a canvas. Nothing here allocates.
package shape

import "github.com/normanking/roboeyes/internal/canvas"

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ClampRadius limits a corner radius to half the smaller side.
func ClampRadius(w, h, radius int) int {
	if radius < 0 {
		return 0
	}
	if radius > w/2 {
		radius = w / 2
	}
	if radius > h/2 {
		radius = h / 2
	}
	return radius
}

// FillRoundedRect fills an axis-aligned rectangle whose corners are replaced
// by quarter circles of the given radius. Pixels outside the canvas are
// skipped.
func FillRoundedRect(c canvas.Canvas, x, y, w, h, radius int, value uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	radius = ClampRadius(w, h, radius)

	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, c.Width()), min(y+h, c.Height())

	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			if outsideCorner(px-x, py-y, w, h, radius) {
				continue
			}
			c.SetPixel(px, py, value)
		}
	}
}

// outsideCorner reports whether the rectangle-relative point (dx, dy) falls
// in one of the cut-away corner regions.
func outsideCorner(dx, dy, w, h, r int) bool {
	if r == 0 {
		return false
	}

	var cx, cy int
	switch {
	case dx < r && dy < r:
		cx, cy = r-dx, r-dy
	case dx >= w-r && dy < r:
		cx, cy = dx-(w-r), r-dy
	case dx < r && dy >= h-r:
		cx, cy = r-dx, dy-(h-r)
	case dx >= w-r && dy >= h-r:
		cx, cy = dx-(w-r), dy-(h-r)
	default:
		return false
	}
	return cx*cx+cy*cy > r*r
}

// FillTriangle fills the triangle p0-p1-p2 using edge functions over the
// clipped bounding box. Degenerate (collinear) triangles draw nothing.
func FillTriangle(c canvas.Canvas, p0, p1, p2 Point, value uint8) {
	area := edge(p0, p1, p2)
	if area == 0 {
		return
	}
	// Normalise winding so inside points have non-negative edge values.
	if area < 0 {
		p1, p2 = p2, p1
	}

	minX := max(min(p0.X, p1.X, p2.X), 0)
	maxX := min(max(p0.X, p1.X, p2.X), c.Width()-1)
	minY := max(min(p0.Y, p1.Y, p2.Y), 0)
	maxY := min(max(p0.Y, p1.Y, p2.Y), c.Height()-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Point{x, y}
			if edge(p0, p1, p) >= 0 && edge(p1, p2, p) >= 0 && edge(p2, p0, p) >= 0 {
				c.SetPixel(x, y, value)
			}
		}
	}
}

// edge returns twice the signed area of triangle a-b-p.
func edge(a, b, p Point) int {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}
