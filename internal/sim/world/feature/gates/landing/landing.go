// Package landing finds a spot near a dungeon origin where an agent can be
// delivered without suffocating, drowning or falling.
package landing

import (
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
)

const DefaultRadius = 5

// FindSafeSpot scans the cube of half-extent radius around origin, never
// below origin.Y. Order is x ascending, then y ascending, then z ascending;
// the first safe point wins. ok=false means the caller has to fall back to
// origin itself.
func FindSafeSpot(origin model.Vec3i, radius int, q terrain.Query) (model.Vec3i, bool) {
	if radius < 0 {
		radius = DefaultRadius
	}
	for dx := -radius; dx <= radius; dx++ {
		for dy := 0; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				p := origin.Add(dx, dy, dz)
				if Safe(p, q) {
					return p, true
				}
			}
		}
	}
	return origin, false
}

// Safe reports whether p and the block above are open, dry, and the block
// below can be stood on.
func Safe(p model.Vec3i, q terrain.Query) bool {
	feet := q.BlockKind(p)
	head := q.BlockKind(p.Up(1))
	ground := q.BlockKind(p.Down(1))
	return feet.Passable() && head.Passable() && ground == terrain.Solid
}
