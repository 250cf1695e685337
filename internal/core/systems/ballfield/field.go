package ballfield

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Field owns a body set between ticks. It has a single writer; callers that
// drive it from several goroutines must serialize access themselves.
type Field struct {
	bodies      []Body
	index       map[string]int
	width       float64
	height      float64
	tick        uint64
	fingerprint uint64
}

func NewField(labels []string, width, height float64, src Source) *Field {
	bodies := Init(labels, width, height, src)
	index := make(map[string]int, len(bodies))
	for i, b := range bodies {
		index[b.ID] = i
	}
	return &Field{
		bodies:      bodies,
		index:       index,
		width:       width,
		height:      height,
		fingerprint: Fingerprint(labels),
	}
}

// Step advances one tick and returns the resulting snapshot.
func (f *Field) Step() []Snapshot {
	f.bodies = Advance(f.bodies, f.width, f.height)
	f.tick++
	return Snapshots(f.bodies)
}

func (f *Field) Snapshot() []Snapshot { return Snapshots(f.bodies) }

// Bodies returns a copy of the current body state.
func (f *Field) Bodies() []Body {
	out := make([]Body, len(f.bodies))
	copy(out, f.bodies)
	return out
}

// Activate looks up a body by id and hands its label to navigate.
func (f *Field) Activate(id string, navigate Navigator) (string, error) {
	i, ok := f.index[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBody, id)
	}
	return Activate(f.bodies[i], navigate), nil
}

func (f *Field) Tick() uint64             { return f.tick }
func (f *Field) Len() int                 { return len(f.bodies) }
func (f *Field) Size() (float64, float64) { return f.width, f.height }
func (f *Field) Fingerprint() uint64      { return f.fingerprint }

// Fingerprint hashes an ordered label list. Two lists with the same
// fingerprint describe the same field; anything else needs a rebuild.
func Fingerprint(labels []string) uint64 {
	d := xxhash.New()
	for _, l := range labels {
		_, _ = d.WriteString(l)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
