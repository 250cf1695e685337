package ballfield

const (
	MinSize           = 60.0  // smallest body diameter
	MaxSize           = 140.0 // exclusive upper bound on diameter
	MinSpeed          = 0.3   // arena pixels per tick
	MaxSpeed          = 0.7   // exclusive
	MinSeparation     = 150.0 // initial center-to-center spacing target
	PlacementAttempts = 50
)

// Palette holds the gradient names a renderer maps ColorIndex onto.
var Palette = [...]string{
	"purple-pink",
	"blue-cyan",
	"green-emerald",
	"orange-red",
	"indigo-purple",
	"teal-green",
	"rose-pink",
	"amber-orange",
}

const PaletteSize = len(Palette)
