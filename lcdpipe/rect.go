package lcdpipe

import "fmt"

// Rect is a rectangular pixel region. W and H are extents, so the region
// covers columns [X, X+W) and rows [Y, Y+H).
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) String() string {
	return fmt.Sprintf("{%d,%d %dx%d}", r.X, r.Y, r.W, r.H)
}

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Area returns the number of pixels covered.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Union returns the bounding box of r and o. An empty operand yields the
// other rect unchanged.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Clip returns the part of r that lies inside bounds, which may be empty.
func (r Rect) Clip(bounds Rect) Rect {
	x0 := max(r.X, bounds.X)
	y0 := max(r.Y, bounds.Y)
	x1 := min(r.X+r.W, bounds.X+bounds.W)
	y1 := min(r.Y+r.H, bounds.Y+bounds.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// In reports whether r lies entirely inside bounds.
func (r Rect) In(bounds Rect) bool {
	if r.Empty() {
		return true
	}
	return r.X >= bounds.X && r.Y >= bounds.Y &&
		r.X+r.W <= bounds.X+bounds.W && r.Y+r.H <= bounds.Y+bounds.H
}
