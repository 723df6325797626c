package store

import (
	"testing"

	snapv1 "voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
	genpkg "voxelgate.ai/internal/sim/world/terrain/gen"
)

const (
	air uint16 = iota
	bedrock
	stone
	dirt
	grass
	sand
	water
)

func testKinds(id uint16) terrain.Kind {
	switch id {
	case air:
		return terrain.Empty
	case water:
		return terrain.Liquid
	default:
		return terrain.Solid
	}
}

// flatGen has zero amplitude, so every column tops out at base.
func flatGen(base, sea int) WorldGen {
	return WorldGen{
		Height:          genpkg.Params{Seed: 3, BaseHeight: base, RegionSize: 64, MinY: -64, MaxY: 319},
		SeaLevel:        sea,
		BiomeRegionSize: 1 << 30,
		Air:             air, Bedrock: bedrock, Stone: stone, Dirt: dirt, Grass: grass, Sand: sand, Water: water,
	}
}

func TestSurfaceHeight_FlatLand(t *testing.T) {
	s := NewChunkStore(flatGen(70, 62), testKinds)
	if y := s.SurfaceHeight(100, -100); y != 70 {
		t.Fatalf("surface=%d want 70", y)
	}
	if k := s.BlockKind(model.Vec3i{X: 100, Y: 71, Z: -100}); k != terrain.Empty {
		t.Fatalf("above surface kind=%s", k)
	}
	if b := s.GetBlock(0, -64, 0); b != bedrock {
		t.Fatalf("floor block=%d want bedrock", b)
	}
	if b := s.GetBlock(0, 60, 0); b != stone {
		t.Fatalf("deep block=%d want stone", b)
	}
}

func TestSurfaceHeight_OceanReportsWater(t *testing.T) {
	s := NewChunkStore(flatGen(50, 62), testKinds)
	y := s.SurfaceHeight(5, 5)
	if y != 62 {
		t.Fatalf("surface=%d want sea level 62", y)
	}
	if k := s.BlockKind(model.Vec3i{X: 5, Y: y, Z: 5}); k != terrain.Liquid {
		t.Fatalf("ocean surface kind=%s want LIQUID", k)
	}
	if b := s.GetBlock(5, 50, 5); b != sand {
		t.Fatalf("sea floor=%d want sand", b)
	}
}

func TestSetBlock_EditsAffectSurface(t *testing.T) {
	s := NewChunkStore(flatGen(70, 62), testKinds)
	if !s.SetBlock(1, 80, 1, stone) {
		t.Fatalf("set in bounds failed")
	}
	if y := s.SurfaceHeight(1, 1); y != 80 {
		t.Fatalf("surface=%d want 80", y)
	}
	s.SetBlock(1, 80, 1, air)
	s.SetBlock(1, 70, 1, air)
	if y := s.SurfaceHeight(1, 1); y != 69 {
		t.Fatalf("surface after clearing=%d want 69", y)
	}
	if s.SetBlock(1, 400, 1, stone) {
		t.Fatalf("set above build limit must fail")
	}
}

func TestSetBlock_RestoringBaseDropsEdit(t *testing.T) {
	s := NewChunkStore(flatGen(70, 62), testKinds)
	base := s.BaseBlock(-3, 70, 17)
	s.SetBlock(-3, 70, 17, stone)
	if s.EditCount() != 1 {
		t.Fatalf("edits=%d want 1", s.EditCount())
	}
	s.SetBlock(-3, 70, 17, base)
	if s.EditCount() != 0 {
		t.Fatalf("edits=%d want 0 after restoring base", s.EditCount())
	}
}

func TestExportImportChunks_RoundTrip(t *testing.T) {
	gen := flatGen(70, 62)
	s := NewChunkStore(gen, testKinds)
	s.SetBlock(-1, 75, -1, stone)
	s.SetBlock(33, 70, 2, air)
	s.SetBlock(34, 71, 2, dirt)

	exported := ExportChunks(s)
	if len(exported) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(exported))
	}
	if exported[0].CX != -1 || exported[1].CX != 2 {
		t.Fatalf("chunks not in key order: %+v", exported)
	}

	imported, err := ImportChunks(gen, testKinds, exported)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	for _, c := range [][3]int{{-1, 75, -1}, {33, 70, 2}, {34, 71, 2}, {0, 70, 0}} {
		if a, b := s.GetBlock(c[0], c[1], c[2]), imported.GetBlock(c[0], c[1], c[2]); a != b {
			t.Fatalf("block at %v: %d vs %d", c, a, b)
		}
	}
	if s.Chunks[ChunkKey{CX: 2, CZ: 0}].Digest() != imported.Chunks[ChunkKey{CX: 2, CZ: 0}].Digest() {
		t.Fatalf("chunk digest changed across round trip")
	}
}

func TestImportChunks_RejectsForeignEdit(t *testing.T) {
	_, err := ImportChunks(flatGen(70, 62), testKinds, []snapv1.ChunkV1{{
		CX:    0,
		CZ:    0,
		Edits: []snapv1.BlockEditV1{{Pos: [3]int{40, 70, 0}, Block: stone}},
	}})
	if err == nil {
		t.Fatalf("expected error for edit outside its chunk")
	}
}
