package store

import (
	"sort"

	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/logic/mathx"
	"voxelgate.ai/internal/sim/world/terrain"
)

var _ terrain.Query = (*ChunkStore)(nil)

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if y < s.Gen.Height.MinY || y > s.Gen.Height.MaxY {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func chunkOf(x, z int) ChunkKey {
	return ChunkKey{CX: mathx.FloorDiv(x, ChunkSize), CZ: mathx.FloorDiv(z, ChunkSize)}
}

func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return s.Gen.Air
	}
	if ch := s.Chunks[chunkOf(x, z)]; ch != nil {
		if b, ok := ch.Edits[model.Vec3i{X: x, Y: y, Z: z}]; ok {
			return b
		}
	}
	return s.BaseBlock(x, y, z)
}

// SetBlock writes b at (x,y,z). It reports false for positions outside the
// build limits.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) bool {
	if !s.InBounds(x, y, z) {
		return false
	}
	k := chunkOf(x, z)
	ch := s.Chunks[k]
	isBase := b == s.BaseBlock(x, y, z)
	if ch == nil {
		if isBase {
			return true
		}
		ch = newChunk(k.CX, k.CZ)
		s.Chunks[k] = ch
	}
	ch.set(model.Vec3i{X: x, Y: y, Z: z}, b, isBase)
	return true
}

// EditCount is the number of positions that differ from generated terrain.
func (s *ChunkStore) EditCount() int {
	n := 0
	for _, ch := range s.Chunks {
		n += len(ch.Edits)
	}
	return n
}

func (s *ChunkStore) BuildLimits() (minY, maxY int) {
	return s.Gen.Height.MinY, s.Gen.Height.MaxY
}

func (s *ChunkStore) BlockKind(p model.Vec3i) terrain.Kind {
	return s.kind(s.GetBlock(p.X, p.Y, p.Z))
}

func (s *ChunkStore) kind(b uint16) terrain.Kind {
	if s.Kinds == nil {
		if b == s.Gen.Air {
			return terrain.Empty
		}
		return terrain.Solid
	}
	return s.Kinds(b)
}

// SurfaceHeight returns the y of the topmost non-passable block in the
// column, liquids included. An all-open column reports MinY.
func (s *ChunkStore) SurfaceHeight(x, z int) int {
	top := s.baseTop(x, z)
	if ch := s.Chunks[chunkOf(x, z)]; ch != nil {
		if t, ok := ch.tops[[2]int{x, z}]; ok && t > top {
			top = t
		}
	}
	minY := s.Gen.Height.MinY
	for y := top; y > minY; y-- {
		if !s.kind(s.GetBlock(x, y, z)).Passable() {
			return y
		}
	}
	return minY
}
