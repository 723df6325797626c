package lifecycle

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/feature/gates/alloc"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
)

// fakeWorld is flat ground at y=62 plus whatever the placer builds. Each
// placed structure is a 5x5 solid floor centred on its origin.
type fakeWorld struct {
	solid     map[model.Vec3i]bool
	placed    []string
	failPlace error
	floorless bool
	destroyed []model.Vec3i
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{solid: map[model.Vec3i]bool{}}
}

func (w *fakeWorld) SurfaceHeight(x, z int) int { return 62 }

func (w *fakeWorld) BlockKind(p model.Vec3i) terrain.Kind {
	if p.Y <= 62 || w.solid[p] {
		return terrain.Solid
	}
	return terrain.Empty
}

func (w *fakeWorld) BuildLimits() (int, int) { return -64, 319 }

func (w *fakeWorld) Place(structureID string, origin model.Vec3i) error {
	if w.failPlace != nil {
		return w.failPlace
	}
	w.placed = append(w.placed, structureID)
	if w.floorless {
		return nil
	}
	for dx := -2; dx <= 2; dx++ {
		for dz := -2; dz <= 2; dz++ {
			w.solid[origin.Add(dx, 0, dz)] = true
		}
	}
	return nil
}

func (w *fakeWorld) DestroyGate(pos model.Vec3i) {
	w.destroyed = append(w.destroyed, pos)
}

type fakeAgent struct {
	id        string
	pos       model.Vec3i
	teleports int
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) TeleportTo(p model.Vec3i) {
	a.pos = p
	a.teleports++
}

type eventLog struct{ events []Event }

func (l *eventLog) GateEvent(e Event) { l.events = append(l.events, e) }

func testCatalog(t *testing.T, recs ...string) *dungeons.Catalog {
	t.Helper()
	c := dungeons.NewCatalog(nil)
	entries := make([]dungeons.RawEntry, 0, len(recs))
	for i, r := range recs {
		entries = append(entries, dungeons.RawEntry{SourceID: fmt.Sprintf("test/%d.json", i), Raw: []byte(r)})
	}
	if rep := c.Reload(entries); len(rep.Rejected) != 0 {
		t.Fatalf("test catalog rejected entries: %+v", rep.Rejected)
	}
	return c
}

func newController(t *testing.T, w *fakeWorld, recs ...string) (*Controller, *eventLog) {
	t.Helper()
	events := &eventLog{}
	return &Controller{
		Catalog:       testCatalog(t, recs...),
		Ledger:        alloc.NewLedger(),
		Terrain:       w,
		Placer:        w,
		Destroyer:     w,
		Rand:          rand.New(rand.NewSource(1)),
		Alloc:         alloc.DefaultParams(),
		ActiveTicks:   400,
		LandingRadius: 5,
		Events:        events,
	}, events
}

var errBoom = errors.New("boom")

func cred(id string) dungeons.Credential {
	k, ok := dungeons.KeyByID(id)
	if !ok {
		panic("unknown key " + id)
	}
	return k.Credential
}
