package alloc

import (
	"math/rand"
	"sync"
	"testing"

	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
)

type flatTerrain struct {
	height     int
	minY, maxY int
	liquid     func(x, z int) bool
}

func (f flatTerrain) SurfaceHeight(x, z int) int { return f.height }

func (f flatTerrain) BlockKind(p model.Vec3i) terrain.Kind {
	if p.Y > f.height {
		return terrain.Empty
	}
	if p.Y == f.height && f.liquid != nil && f.liquid(p.X, p.Z) {
		return terrain.Liquid
	}
	return terrain.Solid
}

func (f flatTerrain) BuildLimits() (int, int) { return f.minY, f.maxY }

func plains() flatTerrain { return flatTerrain{height: 62, minY: -64, maxY: 319} }

func TestAllocate_PlacesAboveSurfaceAndRecords(t *testing.T) {
	l := NewLedger()
	rng := rand.New(rand.NewSource(1))
	pt, st, ok := Allocate(l, model.Vec3i{}, DefaultParams(), plains(), rng)
	if !ok {
		t.Fatalf("allocation failed: %+v", st)
	}
	if pt.Y != 64 {
		t.Fatalf("y=%d want surface+2=64", pt.Y)
	}
	if pt.X < -20000 || pt.X > 20000 || pt.Z < -20000 || pt.Z > 20000 {
		t.Fatalf("point %v outside search radius", pt)
	}
	if !l.Contains(pt) || !l.Dirty() || l.Len() != 1 {
		t.Fatalf("ledger not updated: len=%d dirty=%v", l.Len(), l.Dirty())
	}
	if st.Attempts != 1 {
		t.Fatalf("attempts=%d want 1", st.Attempts)
	}
}

func TestAllocate_ExhaustionLeavesLedgerUntouched(t *testing.T) {
	l := NewLedger()
	l.Restore([]model.Vec3i{{X: 5000, Y: 64, Z: 5000}})
	sea := plains()
	sea.liquid = func(x, z int) bool { return true }

	_, st, ok := Allocate(l, model.Vec3i{}, DefaultParams(), sea, rand.New(rand.NewSource(3)))
	if ok {
		t.Fatalf("expected exhaustion over open water")
	}
	if st.Attempts != 50 || st.Rejects[RejectLiquid] != 50 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if l.Len() != 1 || l.Dirty() {
		t.Fatalf("ledger changed on failure: len=%d dirty=%v", l.Len(), l.Dirty())
	}
}

func TestAllocate_RejectsColumnsNearBuildLimits(t *testing.T) {
	cases := []struct {
		name   string
		height int
	}{
		{name: "near_floor", height: -64 + 9},
		{name: "near_ceiling", height: 319 - 9},
	}
	for _, c := range cases {
		tr := plains()
		tr.height = c.height
		l := NewLedger()
		_, st, ok := Allocate(l, model.Vec3i{}, Params{MaxAttempts: 5}, tr, rand.New(rand.NewSource(9)))
		if ok {
			t.Fatalf("%s: expected rejection", c.name)
		}
		if st.Rejects[RejectBounds] != 5 {
			t.Fatalf("%s: rejects=%v", c.name, st.Rejects)
		}
	}

	// Exactly at the margin is allowed.
	tr := plains()
	tr.height = -64 + 10
	if _, _, ok := Allocate(NewLedger(), model.Vec3i{}, Params{MaxAttempts: 1}, tr, rand.New(rand.NewSource(9))); !ok {
		t.Fatalf("column at margin should be accepted")
	}
}

func TestAllocate_SkipsLiquidColumns(t *testing.T) {
	tr := plains()
	tr.liquid = func(x, z int) bool { return x < 0 }
	l := NewLedger()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		pt, _, ok := Allocate(l, model.Vec3i{}, Params{MinSeparation: 1}, tr, rng)
		if !ok {
			t.Fatalf("allocation %d failed", i)
		}
		if pt.X < 0 {
			t.Fatalf("allocated over liquid at %v", pt)
		}
	}
}

// A ledger holding (0,64,0) must never hand out a point within 499 of it.
func TestAllocate_NeverWithinSeparationOfExistingPoint(t *testing.T) {
	seeded := model.Vec3i{X: 0, Y: 64, Z: 0}
	rng := rand.New(rand.NewSource(2024))
	p := Params{MinSeparation: 500, MaxAttempts: 50, SearchRadius: 800}
	placed := 0
	for trial := 0; trial < 1000; trial++ {
		l := NewLedger()
		l.Restore([]model.Vec3i{seeded})
		pt, _, ok := Allocate(l, seeded, p, plains(), rng)
		if !ok {
			if l.Len() != 1 {
				t.Fatalf("trial %d: failed allocation changed ledger", trial)
			}
			continue
		}
		placed++
		if d := model.Manhattan(pt, seeded); d < 500 {
			t.Fatalf("trial %d: point %v at distance %d", trial, pt, d)
		}
	}
	if placed == 0 {
		t.Fatalf("no trial produced a point")
	}
}

func TestAllocate_ConcurrentCallersKeepSeparation(t *testing.T) {
	l := NewLedger()
	p := Params{MinSeparation: 500, MaxAttempts: 50, SearchRadius: 4000}
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 40; i++ {
				Allocate(l, model.Vec3i{}, p, plains(), rng)
			}
		}(int64(g + 1))
	}
	wg.Wait()

	pts := l.Points()
	if len(pts) < 2 {
		t.Fatalf("expected several points, got %d", len(pts))
	}
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if d := model.Manhattan(pts[i], pts[j]); d < 500 {
				t.Fatalf("points %v and %v only %d apart", pts[i], pts[j], d)
			}
		}
	}
}
