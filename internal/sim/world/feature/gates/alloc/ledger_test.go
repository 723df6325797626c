package alloc

import (
	"testing"

	"voxelgate.ai/internal/sim/world/kernel/model"
)

func TestLedger_TryInsertEnforcesSeparation(t *testing.T) {
	l := NewLedger()
	a := model.Vec3i{X: 0, Y: 64, Z: 0}
	if !l.TryInsert(a, 500) {
		t.Fatalf("first insert must succeed")
	}
	if l.TryInsert(a, 500) {
		t.Fatalf("duplicate insert must fail")
	}
	if l.TryInsert(model.Vec3i{X: 499, Y: 64, Z: 0}, 500) {
		t.Fatalf("insert at 499 must fail")
	}
	if !l.TryInsert(model.Vec3i{X: 500, Y: 64, Z: 0}, 500) {
		t.Fatalf("insert at exactly 500 must succeed")
	}
	if got := l.MinDistance(model.Vec3i{X: 250, Y: 64, Z: 0}); got != 250 {
		t.Fatalf("MinDistance=%d want 250", got)
	}
}

func TestLedger_RestoreAndDirtyFlag(t *testing.T) {
	l := NewLedger()
	if l.MinDistance(model.Vec3i{}) != -1 {
		t.Fatalf("empty ledger distance must be -1")
	}
	l.TryInsert(model.Vec3i{X: 1}, 1)
	if !l.Dirty() {
		t.Fatalf("insert must mark dirty")
	}
	l.MarkClean()
	if l.Dirty() {
		t.Fatalf("MarkClean did not clear")
	}
	l.MarkDirty()
	if !l.Dirty() {
		t.Fatalf("MarkDirty did not set")
	}
	l.MarkClean()

	pts := []model.Vec3i{{X: 3000}, {X: -3000}, {Z: 9000}}
	l.Restore(pts)
	if l.Dirty() || l.Len() != 3 || l.Contains(model.Vec3i{X: 1}) {
		t.Fatalf("restore must replace content without dirtying: len=%d", l.Len())
	}
	got := l.Points()
	if got[0] != (model.Vec3i{X: -3000}) || got[2] != (model.Vec3i{X: 3000}) {
		t.Fatalf("points not sorted: %v", got)
	}
}
