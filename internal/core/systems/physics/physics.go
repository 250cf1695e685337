package physics

import "math"

// Vec2 is a 2D vector in arena-local coordinates (origin top-left).
type Vec2 struct{ X, Y float64 }

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2    { return Vec2{v.X * k, v.Y * k} }
func (v Vec2) Len() float64            { return math.Hypot(v.X, v.Y) }
func (v Vec2) Distance(o Vec2) float64 { return Distance2(v.X, v.Y, o.X, o.Y) }

// Polar builds a vector of the given length pointing at angle (radians).
func Polar(length, angle float64) Vec2 {
	return Vec2{length * math.Cos(angle), length * math.Sin(angle)}
}

// Distance2 computes Euclidean distance between two 2D points.
func Distance2(x1, y1, x2, y2 float64) float64 { return math.Hypot(x2-x1, y2-y1) }

// Angle returns the direction from a to b. Coincident points yield 0.
func Angle(a, b Vec2) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx)
}

// Clamp bounds v to [lo, hi]. When lo > hi (degenerate range) lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
