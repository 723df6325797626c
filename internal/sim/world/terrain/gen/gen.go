// Package gen computes the procedural base terrain: a column heightmap built
// from lattice value noise, with biome regions choosing the surface block.
package gen

import "voxelgate.ai/internal/sim/world/logic/mathx"

type Biome string

const (
	Plains Biome = "PLAINS"
	Forest Biome = "FOREST"
	Desert Biome = "DESERT"
)

func BiomeFrom(noise uint64) Biome {
	switch noise % 3 {
	case 0:
		return Plains
	case 1:
		return Forest
	default:
		return Desert
	}
}

func BiomeAt(seed int64, x, z, regionSize int) Biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := mathx.FloorDiv(x, regionSize)
	rz := mathx.FloorDiv(z, regionSize)
	return BiomeFrom(mathx.Hash2(seed, rx, rz))
}

// Params shapes the heightmap.
type Params struct {
	Seed            int64
	BaseHeight      int
	HeightAmplitude int
	RegionSize      int
	MinY, MaxY      int
}

const lerpScale = 1024

// lattice returns a value in [-amp, amp] at a region corner.
func (p Params) lattice(rx, rz int) int {
	if p.HeightAmplitude <= 0 {
		return 0
	}
	span := uint64(2*p.HeightAmplitude + 1)
	return int(mathx.Hash2(p.Seed+17, rx, rz)%span) - p.HeightAmplitude
}

// Height returns the y of the topmost solid block of column (x, z), clamped
// into [MinY, MaxY-1].
func (p Params) Height(x, z int) int {
	size := p.RegionSize
	if size <= 0 {
		size = 1
	}
	rx := mathx.FloorDiv(x, size)
	rz := mathx.FloorDiv(z, size)
	tx := mathx.Mod(x, size) * lerpScale / size
	tz := mathx.Mod(z, size) * lerpScale / size

	h00 := p.lattice(rx, rz)
	h10 := p.lattice(rx+1, rz)
	h01 := p.lattice(rx, rz+1)
	h11 := p.lattice(rx+1, rz+1)

	top := mathx.Lerp(h00, h10, tx, lerpScale)
	bot := mathx.Lerp(h01, h11, tx, lerpScale)
	h := p.BaseHeight + mathx.Lerp(top, bot, tz, lerpScale)

	if h < p.MinY {
		h = p.MinY
	}
	if p.MaxY > p.MinY && h > p.MaxY-1 {
		h = p.MaxY - 1
	}
	return h
}
