package server

import "github.com/safarnama/safarnama/internal/core/systems/ballfield"

// Client actions
const (
	ActionInit     = "init"
	ActionActivate = "activate"
)

// Server message types
const (
	TypeFrame    = "frame"
	TypeNavigate = "navigate"
	TypeError    = "error"
	TypeReady    = "ready"
)

// ClientMessage is anything a renderer sends. Width and Height are optional on
// init and default to the size given when connecting.
type ClientMessage struct {
	Action string   `json:"action"`
	Labels []string `json:"labels,omitempty"`
	ID     string   `json:"id,omitempty"`
	Width  float64  `json:"width,omitempty"`
	Height float64  `json:"height,omitempty"`
}

type ReadyMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Palette   []string `json:"palette"`
}

type FrameMessage struct {
	Type   string               `json:"type"`
	Tick   uint64               `json:"tick"`
	Bodies []ballfield.Snapshot `json:"bodies"`
}

type NavigateMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
	Route string `json:"route"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func paletteNames() []string {
	out := make([]string, len(ballfield.Palette))
	copy(out, ballfield.Palette[:])
	return out
}
