// Package terrain defines the read-only boundary the gate subsystems use to
// look at the world: column surface heights and the kind of block at a point.
package terrain

import "voxelgate.ai/internal/sim/world/kernel/model"

// Kind classifies a block for placement decisions.
type Kind uint8

const (
	Empty Kind = iota
	Solid
	Liquid
	Replaceable
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "EMPTY"
	case Solid:
		return "SOLID"
	case Liquid:
		return "LIQUID"
	case Replaceable:
		return "REPLACEABLE"
	default:
		return "UNKNOWN"
	}
}

// ParseKind maps a catalog kind string to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "EMPTY":
		return Empty, true
	case "SOLID":
		return Solid, true
	case "LIQUID":
		return Liquid, true
	case "REPLACEABLE":
		return Replaceable, true
	default:
		return Empty, false
	}
}

// Passable reports whether an agent can occupy a block of this kind.
func (k Kind) Passable() bool { return k == Empty || k == Replaceable }

type Query interface {
	// SurfaceHeight returns the y of the topmost non-empty block in column (x,z).
	SurfaceHeight(x, z int) int
	BlockKind(p model.Vec3i) Kind
	// BuildLimits returns the inclusive vertical range blocks may occupy.
	BuildLimits() (minY, maxY int)
}
