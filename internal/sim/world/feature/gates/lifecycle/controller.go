// Package lifecycle drives a gate from idle through an active dungeon
// session and back. Callers serialize Activate and Tick per gate; the world
// loop does this by running both on its own goroutine.
package lifecycle

import (
	"fmt"
	"log"

	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/feature/gates/alloc"
	"voxelgate.ai/internal/sim/world/feature/gates/landing"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
)

type Rand interface {
	Intn(n int) int
}

// Agent is the actor using a key on a gate.
type Agent interface {
	ID() string
	TeleportTo(p model.Vec3i)
}

// Placer writes a structure template into the world at origin. It writes
// nothing when it returns an error.
type Placer interface {
	Place(structureID string, origin model.Vec3i) error
}

// Destroyer removes a gate block and its immediate surroundings.
type Destroyer interface {
	DestroyGate(pos model.Vec3i)
}

const (
	EventActivate = "ACTIVATE"
	EventReenter  = "REENTER"
	EventReject   = "REJECT"
	EventExpire   = "EXPIRE"
)

// Event reports a lifecycle transition or a rejected activation.
type Event struct {
	Type      string
	Gate      model.Vec3i
	AgentID   string
	Code      string
	Dungeon   *dungeons.Descriptor
	Placement *model.Vec3i
	Delivered *model.Vec3i
	Attempts  int
	Rejects   map[string]int
}

type EventSink interface {
	GateEvent(e Event)
}

// Controller holds the collaborators shared by all gates of one world.
type Controller struct {
	Catalog   *dungeons.Catalog
	Ledger    *alloc.Ledger
	Terrain   terrain.Query
	Placer    Placer
	Destroyer Destroyer
	Rand      Rand

	Alloc         alloc.Params
	ActiveTicks   int
	LandingRadius int
	SpawnHint     model.Vec3i

	Log    *log.Logger
	Events EventSink
}

type Result struct {
	OK      bool
	Code    string
	Message string

	Reentry   bool
	Dungeon   *dungeons.Descriptor
	Placement model.Vec3i
	Delivered model.Vec3i
	Unsafe    bool
}

type TickResult struct {
	Expired bool
}

func (c *Controller) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
	}
}

func (c *Controller) emit(e Event) {
	if c.Events != nil {
		c.Events.GateEvent(e)
	}
}

func (c *Controller) reject(g *Gate, a Agent, code, msg string, e Event) Result {
	e.Type = EventReject
	e.Gate = g.Pos
	e.AgentID = a.ID()
	e.Code = code
	c.emit(e)
	return Result{Code: code, Message: msg}
}

// Activate uses key on g for agent a. An idle gate selects a dungeon,
// allocates and builds it, then delivers the agent. An active gate lets a
// sufficient key re-enter the existing dungeon. Failures leave g unchanged.
func (c *Controller) Activate(g *Gate, a Agent, key dungeons.Credential) Result {
	if g.State.Active() {
		return c.reenter(g, a, key)
	}

	d, ok := dungeons.Select(c.Catalog.Snapshot(), key.OpensType, key.MinDifficulty, c.Rand)
	if !ok {
		c.logf("gate no_match gate=%v agent=%s type=%s min_difficulty=%d", g.Pos, a.ID(), key.OpensType, key.MinDifficulty)
		return c.reject(g, a, protocol.ErrNoMatch,
			fmt.Sprintf("no %s dungeon at difficulty %d or above", key.OpensType, key.MinDifficulty), Event{})
	}

	pt, st, ok := alloc.Allocate(c.Ledger, c.SpawnHint, c.Alloc, c.Terrain, c.Rand)
	if !ok {
		c.logf("gate no_placement gate=%v agent=%s attempts=%d rejects=%v", g.Pos, a.ID(), st.Attempts, st.Rejects)
		return c.reject(g, a, protocol.ErrNoPlacement, "no room for a dungeon",
			Event{Dungeon: &d, Attempts: st.Attempts, Rejects: st.Rejects})
	}

	if err := c.Placer.Place(d.StructureID, pt); err != nil {
		// The point stays in the ledger.
		c.logf("gate placement_failed gate=%v agent=%s structure=%s at=%v err=%v", g.Pos, a.ID(), d.StructureID, pt, err)
		return c.reject(g, a, protocol.ErrPlacementFailed, err.Error(),
			Event{Dungeon: &d, Placement: &pt, Attempts: st.Attempts, Rejects: st.Rejects})
	}

	spot, unsafe := c.deliver(a, pt)
	g.State = State{
		Phase:          Active,
		RemainingTicks: c.ActiveTicks,
		Placement:      &pt,
		Chosen:         &d,
	}
	c.logf("gate activated gate=%v agent=%s dungeon=%s at=%v delivered=%v unsafe=%t attempts=%d",
		g.Pos, a.ID(), d, pt, spot, unsafe, st.Attempts)
	c.emit(Event{
		Type: EventActivate, Gate: g.Pos, AgentID: a.ID(),
		Dungeon: &d, Placement: &pt, Delivered: &spot,
		Attempts: st.Attempts, Rejects: st.Rejects,
	})
	return Result{OK: true, Dungeon: &d, Placement: pt, Delivered: spot, Unsafe: unsafe}
}

func (c *Controller) reenter(g *Gate, a Agent, key dungeons.Credential) Result {
	chosen := *g.State.Chosen
	if !key.Allows(chosen) {
		c.logf("gate key_mismatch gate=%v agent=%s have=%s/%d want=%s/%d",
			g.Pos, a.ID(), key.OpensType, key.MinDifficulty, chosen.Type, chosen.Difficulty)
		return c.reject(g, a, protocol.ErrKeyMismatch,
			fmt.Sprintf("gate is open to %s difficulty %d", chosen.Type, chosen.Difficulty), Event{})
	}
	pt := *g.State.Placement
	spot, unsafe := c.deliver(a, pt)
	c.emit(Event{Type: EventReenter, Gate: g.Pos, AgentID: a.ID(), Dungeon: &chosen, Placement: &pt, Delivered: &spot})
	return Result{OK: true, Reentry: true, Dungeon: &chosen, Placement: pt, Delivered: spot, Unsafe: unsafe}
}

// deliver teleports a to a safe spot near pt, or to pt itself when none is
// found.
func (c *Controller) deliver(a Agent, pt model.Vec3i) (spot model.Vec3i, unsafe bool) {
	radius := c.LandingRadius
	if radius <= 0 {
		radius = landing.DefaultRadius
	}
	spot, ok := landing.FindSafeSpot(pt, radius, c.Terrain)
	if !ok {
		c.logf("gate unsafe_landing agent=%s at=%v radius=%d", a.ID(), pt, radius)
		spot = pt
	}
	a.TeleportTo(spot)
	return spot, !ok
}

// Tick advances g by one tick. An active gate whose countdown runs out is
// destroyed and returns to idle.
func (c *Controller) Tick(g *Gate) TickResult {
	if !g.State.Active() {
		return TickResult{}
	}
	g.State.RemainingTicks--
	if g.State.RemainingTicks > 0 {
		return TickResult{}
	}
	e := Event{Type: EventExpire, Gate: g.Pos, Dungeon: g.State.Chosen, Placement: g.State.Placement}
	if c.Destroyer != nil {
		c.Destroyer.DestroyGate(g.Pos)
	}
	g.State = State{}
	c.logf("gate expired gate=%v", g.Pos)
	c.emit(e)
	return TickResult{Expired: true}
}
