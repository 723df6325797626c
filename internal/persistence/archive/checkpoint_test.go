package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"voxelgate.ai/internal/persistence/snapshot"
)

func TestArchiveCheckpoint_CopiesWindowEndSnapshot(t *testing.T) {
	worldDir := filepath.Join(t.TempDir(), "worlds", "w1")
	src := filepath.Join(worldDir, "snapshots", "5.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 5},
		Seed:   42,
		Ledger: [][3]int{{0, 70, 0}, {600, 71, 0}},
		Gates: []snapshot.GateV1{
			{Pos: [3]int{1, 65, 1}, Kind: "basic"},
			{Pos: [3]int{2, 65, 2}, Kind: "dark", IsActive: true},
		},
	}

	n, archivedPath, ok, err := ArchiveCheckpoint(worldDir, src, snap, 3)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok || n != 2 {
		t.Fatalf("archived=%t n=%d, want true 2", ok, n)
	}
	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", got, want)
	}

	b, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta CheckpointMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.LedgerPoints != 2 || meta.Gates != 2 || meta.ActiveGates != 1 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveCheckpoint_SkipsMidWindow(t *testing.T) {
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, Tick: 3}}
	if _, _, ok, err := ArchiveCheckpoint(t.TempDir(), "unused", snap, 3); ok || err != nil {
		t.Fatalf("ok=%t err=%v, want skip", ok, err)
	}
	if _, _, ok, _ := ArchiveCheckpoint(t.TempDir(), "unused", snap, 0); ok {
		t.Fatalf("disabled archiving should skip")
	}
}
