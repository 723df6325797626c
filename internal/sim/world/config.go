package world

import (
	"voxelgate.ai/internal/sim/world/feature/gates/alloc"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	SnapshotEveryTicks int
	// DirtySnapshotTicks bounds how long a new ledger point may stay unsaved.
	DirtySnapshotTicks int

	MinY            int
	MaxY            int
	SeaLevel        int
	BaseHeight      int
	HeightAmplitude int
	RegionSize      int
	BiomeRegionSize int
	BoundaryR       int

	GateActiveTicks int
	LandingRadius   int
	DestroyRadius   int
	Alloc           alloc.Params
	// Spawn is the shared origin for new agents and dungeon searches; Y is
	// ignored.
	Spawn model.Vec3i

	StarterKeys    map[string]int
	AllowKeyGrants bool
}

func (c *WorldConfig) normalize() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.DirtySnapshotTicks <= 0 {
		c.DirtySnapshotTicks = 5 * c.TickRateHz
	}
	if c.MaxY <= c.MinY {
		c.MinY, c.MaxY = -64, 319
	}
	if c.RegionSize <= 0 {
		c.RegionSize = 64
	}
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 256
	}
	if c.GateActiveTicks <= 0 {
		c.GateActiveTicks = 20 * c.TickRateHz
	}
	if c.DestroyRadius < 0 {
		c.DestroyRadius = 0
	}
}
