package ballfield

import "github.com/safarnama/safarnama/internal/core/systems/physics"

// Body is one labeled circle in the field. Size and ColorIndex never change
// after Init.
type Body struct {
	ID         string
	Label      string
	Position   physics.Vec2
	Velocity   physics.Vec2
	Size       float64
	ColorIndex int
}

func (b Body) Radius() float64 { return b.Size / 2 }

// Snapshot is the read-only view of a body handed to renderers.
type Snapshot struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Radius     float64 `json:"radius"`
	ColorIndex int     `json:"colorIndex"`
}

// Snapshots copies bodies into render records, preserving order.
func Snapshots(bodies []Body) []Snapshot {
	out := make([]Snapshot, len(bodies))
	for i, b := range bodies {
		out[i] = Snapshot{
			ID:         b.ID,
			Label:      b.Label,
			X:          b.Position.X,
			Y:          b.Position.Y,
			Radius:     b.Radius(),
			ColorIndex: b.ColorIndex,
		}
	}
	return out
}
