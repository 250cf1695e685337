package ballfield

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarnama/safarnama/internal/core/systems/physics"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Genre%d", i)
	}
	return out
}

func body(id string, x, y, vx, vy, size float64) Body {
	return Body{
		ID:       id,
		Label:    id,
		Position: physics.Vec2{X: x, Y: y},
		Velocity: physics.Vec2{X: vx, Y: vy},
		Size:     size,
	}
}

func TestInit_EmptyLabels(t *testing.T) {
	bodies := Init(nil, 800, 600, NewSource(1))
	assert.Empty(t, bodies)
}

func TestInit_Ranges(t *testing.T) {
	in := labels(10)
	bodies := Init(in, 1600, 900, NewSource(7))
	require.Len(t, bodies, len(in))

	for i, b := range bodies {
		assert.Equal(t, in[i], b.ID)
		assert.Equal(t, in[i], b.Label)
		assert.Equal(t, i%PaletteSize, b.ColorIndex)
		assert.GreaterOrEqual(t, b.Size, MinSize)
		assert.Less(t, b.Size, MaxSize)
		assert.Greater(t, b.Radius(), 0.0)

		speed := b.Velocity.Len()
		assert.GreaterOrEqual(t, speed, MinSpeed-1e-9)
		assert.Less(t, speed, MaxSpeed)

		assert.GreaterOrEqual(t, b.Position.X, b.Size)
		assert.Less(t, b.Position.X, 1600-b.Size)
		assert.GreaterOrEqual(t, b.Position.Y, b.Size)
		assert.Less(t, b.Position.Y, 900-b.Size)
	}
}

func TestInit_SpacedWhenRoomAllows(t *testing.T) {
	bodies := Init(labels(6), 1600, 900, NewSource(42))
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[i].Position.Distance(bodies[j].Position)
			assert.GreaterOrEqualf(t, d, MinSeparation, "bodies %d and %d", i, j)
		}
	}
}

func TestInit_AcceptsLastAttemptWhenCrowded(t *testing.T) {
	// A constant source lands every try on the same point, so every body
	// after the first exhausts its attempts and is placed anyway.
	bodies := Init(labels(3), 800, 600, constSource(0.5))
	require.Len(t, bodies, 3)
	assert.Equal(t, bodies[0].Position, bodies[1].Position)
	assert.Equal(t, bodies[1].Position, bodies[2].Position)
}

func TestInit_DegenerateArena(t *testing.T) {
	assert.NotPanics(t, func() {
		bodies := Init(labels(4), 0, -10, NewSource(3))
		for tick := 0; tick < 10; tick++ {
			bodies = Advance(bodies, 0, -10)
		}
		for _, b := range bodies {
			assert.False(t, math.IsNaN(b.Position.X))
			assert.False(t, math.IsNaN(b.Position.Y))
		}
	})
}

func TestAdvance_Containment(t *testing.T) {
	const w, h = 1200.0, 600.0
	bodies := Init(labels(12), w, h, NewSource(99))

	for tick := 0; tick < 2000; tick++ {
		bodies = Advance(bodies, w, h)
		for _, b := range bodies {
			r := b.Radius()
			require.GreaterOrEqual(t, b.Position.X, r)
			require.LessOrEqual(t, b.Position.X, w-r)
			require.GreaterOrEqual(t, b.Position.Y, r)
			require.LessOrEqual(t, b.Position.Y, h-r)
		}
	}
}

func TestAdvance_CountInvariance(t *testing.T) {
	bodies := Init(labels(9), 1000, 700, NewSource(5))
	for tick := 0; tick < 100; tick++ {
		bodies = Advance(bodies, 1000, 700)
	}
	assert.Len(t, bodies, 9)
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	in := []Body{body("a", 100, 100, 1, 1, 80)}
	_ = Advance(in, 800, 600)
	assert.Equal(t, physics.Vec2{X: 100, Y: 100}, in[0].Position)
}

func TestAdvance_WallReflection(t *testing.T) {
	const w, v = 800.0, 0.6
	b := body("a", w-50-0.5*v, 300, v, 0, 100)

	out := Advance([]Body{b}, w, 600)

	assert.Equal(t, w-50, out[0].Position.X)
	assert.Equal(t, -v, out[0].Velocity.X)
	assert.Equal(t, 0.0, out[0].Velocity.Y)
}

func TestAdvance_LowWallReflection(t *testing.T) {
	b := body("a", 40.2, 300, 0, -0.5, 80)
	b.Position.Y = 40.2
	out := Advance([]Body{b}, 800, 600)

	assert.Equal(t, 40.0, out[0].Position.Y)
	assert.Equal(t, 0.5, out[0].Velocity.Y)
}

func TestAdvance_VelocityExchange(t *testing.T) {
	a := body("a", 300, 300, 1, 0, 100)
	b := body("b", 380, 300, -1, 0, 100)

	out := Advance([]Body{a, b}, 1000, 600)

	assert.Equal(t, physics.Vec2{X: -1, Y: 0}, out[0].Velocity)
	assert.Equal(t, physics.Vec2{X: 1, Y: 0}, out[1].Velocity)
	assert.InDelta(t, 100, out[0].Position.Distance(out[1].Position), 1e-9)
	assert.InDelta(t, 290, out[0].Position.X, 1e-9)
	assert.InDelta(t, 390, out[1].Position.X, 1e-9)
}

func TestAdvance_SeparationNeverShrinks(t *testing.T) {
	cases := []struct {
		name   string
		dx, dy float64
	}{
		{"horizontal", 30, 0},
		{"vertical", 0, 50},
		{"diagonal", 20, -25},
		{"grazing", 79.9, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := body("a", 400, 300, 0, 0, 80)
			b := body("b", 400+tc.dx, 300+tc.dy, 0, 0, 80)
			before := a.Position.Distance(b.Position)

			out := Advance([]Body{a, b}, 1000, 800)
			after := out[0].Position.Distance(out[1].Position)

			assert.Greater(t, after, before)
			assert.InDelta(t, 80, after, 1e-9)
		})
	}
}

func TestAdvance_CoincidentCenters(t *testing.T) {
	a := body("a", 400, 300, 0, 0, 80)
	b := body("b", 400, 300, 0, 0, 60)

	out := Advance([]Body{a, b}, 1000, 800)

	assert.InDelta(t, 365, out[0].Position.X, 1e-9)
	assert.InDelta(t, 435, out[1].Position.X, 1e-9)
	assert.Equal(t, 300.0, out[0].Position.Y)
	assert.Equal(t, 300.0, out[1].Position.Y)
}

func TestAdvance_SequentialPairs(t *testing.T) {
	// b overlaps both neighbours and gets pushed twice in one tick.
	a := body("a", 300, 300, 0, 0, 100)
	b := body("b", 360, 300, 0, 0, 100)
	c := body("c", 420, 300, 0, 0, 100)

	out := Advance([]Body{a, b, c}, 1200, 800)

	assert.InDelta(t, 280, out[0].Position.X, 1e-9)
	assert.InDelta(t, 350, out[1].Position.X, 1e-9)
	assert.InDelta(t, 450, out[2].Position.X, 1e-9)
	// The second push drives b back toward a; there is no convergence loop.
	assert.InDelta(t, 70, out[0].Position.Distance(out[1].Position), 1e-9)
}

func TestAdvance_Deterministic(t *testing.T) {
	run := func() []Snapshot {
		bodies := Init(labels(15), 1400, 800, NewSource(2024))
		for tick := 0; tick < 500; tick++ {
			bodies = Advance(bodies, 1400, 800)
		}
		return Snapshots(bodies)
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("runs diverged (-first +second):\n%s", diff)
	}
}
