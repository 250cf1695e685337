package ballfield

import (
	"math"

	"github.com/safarnama/safarnama/internal/core/systems/physics"
)

// Init creates one body per label, in order. Placement is best effort: each
// body gets PlacementAttempts tries to land MinSeparation away from the bodies
// already placed, and keeps the last try otherwise.
func Init(labels []string, width, height float64, src Source) []Body {
	bodies := make([]Body, 0, len(labels))
	for i, label := range labels {
		size := uniform(src, MinSize, MaxSize)

		var pos physics.Vec2
		for attempt := 0; attempt < PlacementAttempts; attempt++ {
			pos = physics.Vec2{
				X: size + src.Float64()*math.Max(0, width-2*size),
				Y: size + src.Float64()*math.Max(0, height-2*size),
			}
			if !crowded(bodies, pos) {
				break
			}
		}

		speed := uniform(src, MinSpeed, MaxSpeed)
		angle := src.Float64() * 2 * math.Pi

		bodies = append(bodies, Body{
			ID:         label,
			Label:      label,
			Position:   pos,
			Velocity:   physics.Polar(speed, angle),
			Size:       size,
			ColorIndex: i % PaletteSize,
		})
	}
	return bodies
}

func crowded(placed []Body, pos physics.Vec2) bool {
	for _, b := range placed {
		if b.Position.Distance(pos) < MinSeparation {
			return true
		}
	}
	return false
}

// Advance moves the field forward one tick and returns the new state. The
// input slice is not modified.
func Advance(bodies []Body, width, height float64) []Body {
	next := make([]Body, len(bodies))
	copy(next, bodies)

	for i := range next {
		b := &next[i]
		b.Position = b.Position.Add(b.Velocity)
		r := b.Radius()
		b.Position.X, b.Velocity.X = bounce(b.Position.X, b.Velocity.X, r, width)
		b.Position.Y, b.Velocity.Y = bounce(b.Position.Y, b.Velocity.Y, r, height)
	}

	// Single pass, ascending pairs. A body may be pushed more than once.
	for i := 0; i < len(next); i++ {
		for j := i + 1; j < len(next); j++ {
			resolve(&next[i], &next[j])
		}
	}

	// Separation can shove a body past a wall; pull it back without touching
	// its velocity so the next tick's bounce stays the only reflection.
	for i := range next {
		b := &next[i]
		r := b.Radius()
		b.Position.X = physics.Clamp(b.Position.X, r, width-r)
		b.Position.Y = physics.Clamp(b.Position.Y, r, height-r)
	}

	return next
}

// bounce reflects v and clamps c when the body touches either wall of an axis
// of the given extent.
func bounce(c, v, r, extent float64) (float64, float64) {
	low := c-r <= 0
	high := c+r >= extent
	if !low && !high {
		return c, v
	}
	if low {
		return r, -v
	}
	return extent - r, -v
}

// resolve separates an overlapping pair to exactly touching distance, each
// body taking half the correction, and swaps their velocities.
func resolve(a, b *Body) {
	minDist := a.Radius() + b.Radius()
	if a.Position.Distance(b.Position) >= minDist {
		return
	}

	angle := physics.Angle(a.Position, b.Position)
	target := a.Position.Add(physics.Polar(minDist, angle))
	half := target.Sub(b.Position).Scale(0.5)

	a.Position = a.Position.Sub(half)
	b.Position = b.Position.Add(half)
	a.Velocity, b.Velocity = b.Velocity, a.Velocity
}
