package worldtest

import (
	"path/filepath"
	"testing"

	"voxelgate.ai/internal/persistence/snapshot"
	world "voxelgate.ai/internal/sim/world"
)

func TestSnapshotResume_ActiveGateKeepsCountingDown(t *testing.T) {
	cats, dcat := LoadCatalogs(t, configDir)
	h1 := NewHarness(t, testConfig(), cats, dcat, "bot")
	gate := h1.Spawn
	if ack := h1.PlaceGate(gate, "cave"); !ack.Accepted {
		t.Fatalf("place gate: %+v", ack)
	}
	if res := h1.Activate(gate, "iron_key"); !res.OK {
		t.Fatalf("activate: %+v", res)
	}
	h1.StepN(10)

	tick, snap := h1.Snapshot()
	path := filepath.Join(t.TempDir(), "snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	w2, err := world.New(testConfig(), cats, dcat, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w2.ImportSnapshot(loaded); err != nil {
		t.Fatalf("import: %v", err)
	}
	h2 := NewHarnessWithWorld(t, w2, cats, dcat, "")
	if w2.CurrentTick() != h1.W.CurrentTick() {
		t.Fatalf("tick after import=%d want %d", w2.CurrentTick(), h1.W.CurrentTick())
	}
	if a, b := h1.W.StateDigest(tick), w2.StateDigest(tick); a != b {
		t.Fatalf("digest changed across snapshot: %s vs %s", a, b)
	}

	// Both worlds expire the gate on the same tick.
	for i := 0; i < 30; i++ {
		t1 := h1.Step()
		h2.Step()
		if h1.Digest != h2.Digest {
			t.Fatalf("digest mismatch at tick %d", t1)
		}
	}
	if h1.W.Metrics().Gates != 0 || w2.Metrics().Gates != 0 {
		t.Fatalf("gate not expired: %d / %d", h1.W.Metrics().Gates, w2.Metrics().Gates)
	}
	if w2.Metrics().LedgerPoints != 1 {
		t.Fatalf("ledger points=%d want 1", w2.Metrics().LedgerPoints)
	}
}
