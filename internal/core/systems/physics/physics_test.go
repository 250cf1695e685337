package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2_Arithmetic(t *testing.T) {
	a := Vec2{3, 4}
	assert.Equal(t, 5.0, a.Len())
	assert.Equal(t, Vec2{4, 6}, a.Add(Vec2{1, 2}))
	assert.Equal(t, Vec2{2, 2}, a.Sub(Vec2{1, 2}))
	assert.Equal(t, Vec2{6, 8}, a.Scale(2))
	assert.Equal(t, 5.0, Vec2{}.Distance(a))
}

func TestAngle_CoincidentIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Angle(Vec2{1, 1}, Vec2{1, 1}))
	assert.InDelta(t, math.Pi/2, Angle(Vec2{0, 0}, Vec2{0, 3}), 1e-12)
}

func TestPolar(t *testing.T) {
	v := Polar(2, math.Pi)
	assert.InDelta(t, -2, v.X, 1e-12)
	assert.InDelta(t, 0, v.Y, 1e-12)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(7, 0, 5))
	assert.Equal(t, 0.0, Clamp(-1, 0, 5))
	assert.Equal(t, 3.0, Clamp(1, 3, 2))
}
