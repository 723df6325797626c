package store

import genpkg "voxelgate.ai/internal/sim/world/terrain/gen"

// baseTop is the highest non-air block of the generated column, water
// included.
func (s *ChunkStore) baseTop(x, z int) int {
	h := s.Gen.Height.Height(x, z)
	if h < s.Gen.SeaLevel {
		return s.Gen.SeaLevel
	}
	return h
}

// BaseBlock returns the generated block at (x,y,z) ignoring edits.
func (s *ChunkStore) BaseBlock(x, y, z int) uint16 {
	g := &s.Gen
	if y < g.Height.MinY || y > g.Height.MaxY {
		return g.Air
	}
	if y == g.Height.MinY {
		return g.Bedrock
	}
	h := g.Height.Height(x, z)
	switch {
	case y > h:
		if y <= g.SeaLevel {
			return g.Water
		}
		return g.Air
	case y < h-3:
		return g.Stone
	}

	desert := genpkg.BiomeAt(g.Height.Seed, x, z, g.BiomeRegionSize) == genpkg.Desert
	underwater := h < g.SeaLevel
	if y == h && !desert && !underwater {
		return g.Grass
	}
	if desert || underwater {
		return g.Sand
	}
	return g.Dirt
}
