package world

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

func TestSnapshot_ExportImportRoundTrip(t *testing.T) {
	cfg := testWorldConfig()
	w := newTestWorld(t, cfg)
	c, _ := join(t, w, "bot")
	pos := gateSpot(w, 8, 8)
	placeGate(t, w, c, pos, "basic")
	res := activate(t, w, c, pos, "bronze_key")
	if !res.OK {
		t.Fatalf("activate: %+v", res)
	}

	snap := w.ExportSnapshot(w.CurrentTick() - 1)
	path := filepath.Join(t.TempDir(), "snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	w2 := newTestWorld(t, cfg)
	if err := w2.ImportSnapshot(loaded); err != nil {
		t.Fatalf("import: %v", err)
	}
	if w2.CurrentTick() != snap.Header.Tick+1 {
		t.Fatalf("tick=%d want %d", w2.CurrentTick(), snap.Header.Tick+1)
	}
	if !reflect.DeepEqual(w2.ExportSnapshot(snap.Header.Tick), snap) {
		t.Fatalf("re-exported snapshot differs")
	}
	g := w2.gates[model.VecFromArray(pos)]
	if g == nil || !g.State.Active() || *g.State.Placement != model.VecFromArray(*res.Placement) {
		t.Fatalf("restored gate=%+v", g)
	}
	if w2.ledger.Dirty() {
		t.Fatalf("restored ledger should be clean")
	}
	// The restored ledger keeps blocking the old point.
	if w2.ledger.Len() != 1 || !w2.ledger.Contains(model.VecFromArray(*res.Placement)) {
		t.Fatalf("ledger=%v", w2.ledger.Points())
	}
	a := w2.agents[c.id]
	if a == nil || a.Pos != model.VecFromArray(*res.Delivered) || a.Keys["bronze_key"] != 1 {
		t.Fatalf("agent=%+v", a)
	}
}

func TestSnapshot_ImportRejectsSeedMismatch(t *testing.T) {
	w := newTestWorld(t, testWorldConfig())
	snap := w.ExportSnapshot(0)
	snap.Seed++
	if err := w.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected seed mismatch error")
	}
	snap.Seed--
	snap.Gates = append(snap.Gates, snapshot.GateV1{Pos: [3]int{1, 70, 1}, Kind: "lava"})
	if err := w.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected error for unknown gate kind")
	}
}

func TestSnapshot_ImportResetsIncompleteActiveGate(t *testing.T) {
	w := newTestWorld(t, testWorldConfig())
	snap := w.ExportSnapshot(0)
	snap.Gates = []snapshot.GateV1{
		{Pos: [3]int{1, 70, 1}, Kind: "basic", IsActive: true, ActivationTimer: 3},
		{Pos: [3]int{2, 70, 1}, Kind: "cave"},
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	g := w.gates[model.Vec3i{X: 1, Y: 70, Z: 1}]
	if g == nil || g.State.Active() || g.State.Placement != nil {
		t.Fatalf("gate=%+v want idle", g)
	}
	if len(w.gates) != 2 {
		t.Fatalf("gates=%d want 2", len(w.gates))
	}
}

func TestSnapshot_DirtyLedgerForcesSnapshot(t *testing.T) {
	cfg := testWorldConfig()
	cfg.SnapshotEveryTicks = 100000
	cfg.DirtySnapshotTicks = 3
	w := newTestWorld(t, cfg)
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)

	c, _ := join(t, w, "bot")
	pos := gateSpot(w, 8, 8)
	placeGate(t, w, c, pos, "basic")
	if res := activate(t, w, c, pos, "bronze_key"); !res.OK {
		t.Fatalf("activate: %+v", res)
	}
	if len(sink) != 0 {
		t.Fatalf("snapshot too early")
	}
	for i := 0; i < 3 && len(sink) == 0; i++ {
		w.StepOnce(nil, nil, nil)
	}
	if len(sink) != 1 {
		t.Fatalf("sink=%d want 1", len(sink))
	}
	snap := <-sink
	if len(snap.Ledger) != 1 || w.ledger.Dirty() {
		t.Fatalf("ledger=%v dirty=%t", snap.Ledger, w.ledger.Dirty())
	}
	for i := 0; i < 5; i++ {
		w.StepOnce(nil, nil, nil)
	}
	if len(sink) != 0 {
		t.Fatalf("clean ledger should not force snapshots")
	}

	// A failed write puts the dirty trigger back.
	w.MarkSnapshotFailed()
	for i := 0; i < 3 && len(sink) == 0; i++ {
		w.StepOnce(nil, nil, nil)
	}
	if len(sink) != 1 {
		t.Fatalf("sink=%d after failed write, want 1", len(sink))
	}
}

func TestRequestSnapshot_ThroughRunLoop(t *testing.T) {
	w := newTestWorld(t, testWorldConfig())
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
	defer rcancel()
	if _, err := w.RequestSnapshot(rctx); err != nil {
		t.Fatalf("request snapshot: %v", err)
	}
	select {
	case snap := <-sink:
		if snap.Header.WorldID != "test" {
			t.Fatalf("snapshot world=%s", snap.Header.WorldID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no snapshot delivered")
	}
	cancel()
	<-done
}
