package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelgate.ai/internal/sim/world/terrain"
)

func TestLoad_RepoConfigs(t *testing.T) {
	cats, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cats.Blocks.Palette[0] != "AIR" || cats.Blocks.Index["AIR"] != 0 {
		t.Fatalf("AIR must be palette id 0, got %v", cats.Blocks.Palette[:1])
	}
	if got := cats.Blocks.KindOf(cats.Blocks.Index["WATER"]); got != terrain.Liquid {
		t.Fatalf("WATER kind=%v want LIQUID", got)
	}
	if got := cats.Blocks.KindOf(cats.Blocks.Index["TALL_GRASS"]); got != terrain.Replaceable {
		t.Fatalf("TALL_GRASS kind=%v want REPLACEABLE", got)
	}
	if cats.Blocks.Breakable(cats.Blocks.Index["BEDROCK"]) {
		t.Fatalf("BEDROCK must not be breakable")
	}
	if _, ok := cats.Structures.ByID["voxelgate:cave_hollow"]; !ok {
		t.Fatalf("missing structure voxelgate:cave_hollow")
	}
	if cats.Structures.Digest == "" || cats.Blocks.PaletteDigest == "" {
		t.Fatalf("digests must be set")
	}
}

func TestLoad_RejectsBadKind(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"AIR","kind":"EMPTY"},{"id":"X","kind":"GOO"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "bad kind") {
		t.Fatalf("expected bad kind error, got %v", err)
	}
}

func TestLoad_RejectsStructureWithUnknownBlock(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"AIR","kind":"EMPTY"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "structures"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	st := `{"id":"s1","aabb":[[0,0,0],[0,0,0]],"blocks":[{"pos":[0,0,0],"block":"NOPE"}]}`
	if err := os.WriteFile(filepath.Join(dir, "structures", "s1.json"), []byte(st), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected unknown block error")
	}
}

func TestLoad_MissingStructuresDirIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"AIR","kind":"EMPTY"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cats, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cats.Structures.ByID) != 0 {
		t.Fatalf("expected no structures")
	}
}
