package bus

// Topics used inside the service.
const (
	TopicField   = "field"
	TopicSession = "session"
)

// Event types published inside the service.
const (
	TypeBodyActivated  = "ballfield.body.activated"
	TypeFieldRebuilt   = "ballfield.field.rebuilt"
	TypeSessionCleared = "session.cleared"
)

// Activation is the payload of TypeBodyActivated.
type Activation struct {
	SessionID string
	BodyID    string
	Label     string // lower-cased
	Route     string
}

// Rebuild is the payload of TypeFieldRebuilt.
type Rebuild struct {
	SessionID   string
	Bodies      int
	Fingerprint uint64
	Width       float64
	Height      float64
}

// SessionCleared is the payload of TypeSessionCleared.
type SessionCleared struct {
	Reason string
	Path   string
	Status int
}
